// Package journalcmder provides the journal command: write entries, list them
// and have a haven API server analyze their emotional drift.
package journalcmder

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/client"
	"github.com/papercomputeco/haven/pkg/config"
	"github.com/papercomputeco/haven/pkg/logger"
)

const journalLongDesc string = `Keep a journal and watch how it feels over time.

Entries are stored by a haven API server. "haven journal analyze" asks the
server to score each entry's sentiment and detect the drift across them:
improving, declining, stable or volatile.

Examples:
  haven journal add "Slept well and went for a long walk."
  haven journal list
  haven journal analyze
  haven journal recall "times I felt calm"
  haven journal mood
  haven journal delete <entry-id>`

const journalShortDesc string = "Write journal entries and analyze emotional drift"

func NewJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: journalShortDesc,
		Long:  journalLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newRecallCmd())
	cmd.AddCommand(newMoodCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// clientFlags are the API connection flags every subcommand carries.
type clientFlags struct {
	apiTarget string
	user      string
}

var clientFlagKeys = []string{config.FlagAPITarget, config.FlagUser}

func (f *clientFlags) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &f.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagUser, &f.user)
}

// newClient resolves the connection settings through flags, environment and
// config.toml and returns a client for them.
func (f *clientFlags) newClient(cmd *cobra.Command) (*client.Client, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, clientFlagKeys)

	debug, _ := cmd.Flags().GetBool("debug")
	return client.New(v.GetString("client.api_target"), v.GetString("client.user"),
		client.WithHTTPClient(&http.Client{
			// Drift analysis waits on the LLM gateway.
			Timeout: 2 * time.Minute,
		}),
		client.WithLogger(logger.New(
			logger.WithDebug(debug),
			logger.WithPretty(true),
			logger.WithWriter(cmd.ErrOrStderr()),
		)),
	)
}
