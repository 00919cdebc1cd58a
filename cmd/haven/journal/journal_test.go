package journalcmder_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/api"
	journalcmder "github.com/papercomputeco/haven/cmd/haven/journal"
	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/logger"
	"github.com/papercomputeco/haven/pkg/storage/inmemory"
	"github.com/papercomputeco/haven/pkg/transport"
	testutils "github.com/papercomputeco/haven/pkg/utils/test"
	"github.com/papercomputeco/haven/pkg/worker"
)

var _ = Describe("NewJournalCmd", func() {
	It("creates a command with the correct use string", func() {
		Expect(journalcmder.NewJournalCmd().Use).To(Equal("journal"))
	})

	It("has every subcommand", func() {
		names := []string{}
		for _, sub := range journalcmder.NewJournalCmd().Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("add", "list", "analyze", "recall", "mood", "delete"))
	})

	It("gives every subcommand the client flags", func() {
		for _, sub := range journalcmder.NewJournalCmd().Commands() {
			Expect(sub.Flags().Lookup("api-target")).NotTo(BeNil(), sub.Name())
			Expect(sub.Flags().Lookup("user")).NotTo(BeNil(), sub.Name())
		}
	})
})

var _ = Describe("Journal command execution", func() {
	var (
		configDir string
		target    string
		store     *inmemory.Driver
		analyzer  *testutils.MockAnalyzer
		vectors   *testutils.MockVectorDriver
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		store = inmemory.NewDriver()
		analyzer = testutils.NewMockAnalyzer()
		vectors = testutils.NewMockVectorDriver()
		embedder := testutils.NewMockEmbedder()

		pool, err := worker.NewPool(&worker.Config{VectorDriver: vectors, Embedder: embedder})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		static := &transport.Static{Chunks: []string{"data: [DONE]\n"}}
		orch, err := chat.New(chat.Config{Transport: static, Store: store})
		Expect(err).NotTo(HaveOccurred())
		svc, err := journal.NewService(journal.ServiceConfig{
			Store:    store,
			Analyzer: analyzer,
			Indexer:  pool,
			Embedder: embedder,
			Vectors:  vectors,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err := api.NewServer(api.Config{
			Chat:      orch,
			Sessions:  store,
			Journal:   svc,
			Transport: static,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() { _ = server.RunWithListener(ln) }()
		target = "http://" + ln.Addr().String()
		DeferCleanup(func() { _ = server.Shutdown() })
	})

	runAs := func(user, stdin string, args ...string) (string, error) {
		cmd := journalcmder.NewJournalCmd()
		cmd.PersistentFlags().String("config-dir", configDir, "")
		cmd.PersistentFlags().Bool("debug", false, "")

		out := &bytes.Buffer{}
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append(args, "--api-target", target, "--user", user))
		err := cmd.Execute()
		return out.String(), err
	}

	run := func(args ...string) (string, error) {
		return runAs("ada", "", args...)
	}

	It("adds entries from arguments and stdin", func() {
		out, err := run("add", "Grateful", "for", "sunshine")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("✓ Saved entry"))

		_, err = runAs("ada", "Long day at work.\n", "add")
		Expect(err).NotTo(HaveOccurred())

		entries, err := store.ListEntries(context.Background(), "ada")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Content).To(Equal("Grateful for sunshine"))
		Expect(entries[1].Content).To(Equal("Long day at work."))
	})

	It("refuses an empty entry", func() {
		_, err := runAs("ada", "  \n", "add")
		Expect(err).To(MatchError(journal.ErrEmptyEntry))
	})

	It("lists only the caller's entries", func() {
		_, err := run("add", "mine")
		Expect(err).NotTo(HaveOccurred())
		_, err = runAs("ben", "", "add", "theirs")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("mine"))
		Expect(out).NotTo(ContainSubstring("theirs"))
		Expect(out).To(ContainSubstring("1 entries"))
	})

	It("says so when there are no entries", func() {
		out, err := run("list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No journal entries yet"))
	})

	It("analyzes drift and shows the scores", func() {
		_, err := run("add", "first")
		Expect(err).NotTo(HaveOccurred())
		_, err = run("add", "second")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("analyze")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("stable"))
		Expect(out).To(ContainSubstring("Neutral (0.50)"))
		Expect(out).To(ContainSubstring("steady"))

		out, err = run("mood")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("over 2 entries"))
	})

	It("reports the server's reason when analysis is refused", func() {
		_, err := run("add", "only one")
		Expect(err).NotTo(HaveOccurred())

		_, err = run("analyze")
		Expect(err).To(MatchError(ContainSubstring("Write at least 2 entries")))
	})

	It("recalls indexed entries", func() {
		_, err := run("add", "a calm walk by the sea")
		Expect(err).NotTo(HaveOccurred())
		Eventually(vectors.Documents).Should(HaveLen(1))

		out, err := run("recall", "calm")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("a calm walk by the sea"))
	})

	It("deletes an entry", func() {
		_, err := run("add", "to be removed")
		Expect(err).NotTo(HaveOccurred())
		entries, err := store.ListEntries(context.Background(), "ada")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("delete", entries[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Deleted entry"))

		_, err = run("delete", entries[0].ID)
		Expect(err).To(HaveOccurred())
	})
})
