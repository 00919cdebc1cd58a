// Package initcmder provides the init command for initializing a local .haven
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/cliui"
	"github.com/papercomputeco/haven/pkg/config"
)

const (
	dirName = ".haven"

	// maxRemoteConfig bounds a config fetched with --preset <url>.
	maxRemoteConfig = 1 << 20
)

const initLongDesc string = `Initialize a new .haven/ directory in the current working directory.

Creates a local .haven/ directory holding config.toml and the chat session
state. It takes precedence over the default ~/.haven/ directory, which keeps
separate journals and settings per project or directory.

Use --preset to start from a named preset or a remote config.toml:
  ollama    local Ollama gateway with journal recall in SQLite
  openai    OpenAI gateway and embeddings
  offline   canned replies, no gateway required

Examples:
  haven init
  haven init --preset offline
  haven init --preset https://example.com/haven/config.toml`

const initShortDesc string = "Initialize a local .haven/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Preset name (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	dir := filepath.Join(cwd, dirName)

	// Resolve the config before touching the filesystem so a bad preset leaves
	// nothing behind.
	cfg, err := c.resolveConfig(ctx)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .haven directory: %w", err)
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// An existing config is only replaced when a preset was asked for.
	if _, statErr := os.Stat(cfger.GetTarget()); c.preset != "" || errors.Is(statErr, os.ErrNotExist) {
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if existed {
		fmt.Fprintf(c.out, "  %s Already initialized: %s\n", cliui.SuccessMark, dir)
	} else {
		fmt.Fprintf(c.out, "  %s Initialized .haven directory: %s\n", cliui.SuccessMark, dir)
	}
	if c.preset != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Preset:"), cliui.NameStyle.Render(c.preset))
	}
	return nil
}

func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
