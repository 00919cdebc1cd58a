// Package havencmder
package havencmder

import (
	"github.com/spf13/cobra"

	breathecmder "github.com/papercomputeco/haven/cmd/haven/breathe"
	chatcmder "github.com/papercomputeco/haven/cmd/haven/chat"
	configcmder "github.com/papercomputeco/haven/cmd/haven/config"
	initcmder "github.com/papercomputeco/haven/cmd/haven/init"
	journalcmder "github.com/papercomputeco/haven/cmd/haven/journal"
	servecmder "github.com/papercomputeco/haven/cmd/haven/serve"
	versioncmder "github.com/papercomputeco/haven/cmd/version"
)

const havenLongDesc string = `Haven is a quiet place to check in with yourself.

Chat with a supportive assistant, keep a journal and see how your mood
drifts over time, or take a minute to breathe.

Get started:
  haven init           Create a local .haven/ directory
  haven serve          Run the haven API server
  haven chat           Chat with the assistant
  haven journal add    Write a journal entry
  haven breathe        Follow a paced breathing exercise`

const havenShortDesc string = "Haven - mental wellness companion"

func NewHavenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "haven",
		Short:        havenShortDesc,
		Long:         havenLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .haven/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(journalcmder.NewJournalCmd())
	cmd.AddCommand(breathecmder.NewBreatheCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
