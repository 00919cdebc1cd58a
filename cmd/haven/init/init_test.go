package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/haven/cmd/haven/init"
	"github.com/papercomputeco/haven/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		Expect(initcmder.NewInitCmd().Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		f := initcmder.NewInitCmd().Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var tmpDir string

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "haven-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		DeferCleanup(func() {
			Expect(os.Chdir(origDir)).To(Succeed())
			os.RemoveAll(tmpDir)
		})
	})

	It("creates a .haven directory with a default config.toml", func() {
		Expect(run()).To(Succeed())

		Expect(filepath.Join(tmpDir, ".haven")).To(BeADirectory())
		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Gateway.Provider).To(Equal("gateway"))
		Expect(cfg.API.Listen).To(Equal(":8081"))
	})

	It("keeps existing contents when already initialized", func() {
		dir := filepath.Join(tmpDir, ".haven")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		session := filepath.Join(dir, "session.json")
		Expect(os.WriteFile(session, []byte(`{"session_id":"abc"}`), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[gateway]\nmodel = \"mistral\"\n"), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())

		data, err := os.ReadFile(session)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"session_id":"abc"}`))
		Expect(loadConfig(tmpDir).Gateway.Model).To(Equal("mistral"))
	})

	It("writes a named preset", func() {
		Expect(run("--preset", "offline")).To(Succeed())
		Expect(loadConfig(tmpDir).Gateway.Provider).To(Equal("canned"))
	})

	It("overwrites the config when re-run with another preset", func() {
		Expect(run("--preset", "openai")).To(Succeed())
		Expect(loadConfig(tmpDir).Gateway.URL).To(Equal("https://api.openai.com"))

		Expect(run("--preset", "ollama")).To(Succeed())
		Expect(loadConfig(tmpDir).Gateway.URL).To(Equal("http://localhost:11434"))
	})

	It("rejects unknown preset names without creating the directory", func() {
		Expect(run("--preset", "anthropic")).To(MatchError(ContainSubstring("unknown preset")))
		Expect(filepath.Join(tmpDir, ".haven")).NotTo(BeADirectory())
	})

	Describe("--preset with a remote URL", func() {
		It("fetches and writes the remote config.toml", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "[gateway]\nurl = \"https://ai.gateway.example\"\n\n[kafka]\nbrokers = [\"kafka:9092\"]\n")
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Gateway.URL).To(Equal("https://ai.gateway.example"))
			Expect(cfg.Kafka.Brokers).To(Equal([]string{"kafka:9092"}))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns error for invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns error for unreachable URL", func() {
			Expect(run("--preset", "http://127.0.0.1:1")).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads and parses the config.toml from the .haven directory
// within baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".haven", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
