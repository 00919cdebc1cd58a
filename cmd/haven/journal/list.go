package journalcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/cliui"
	"github.com/papercomputeco/haven/pkg/journal"
)

func newListCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			entries, err := c.ListEntries(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing entries: %w", err)
			}

			p := cliui.NewPrinter(cmd.OutOrStdout())
			if len(entries) == 0 {
				p.Println(cliui.DimStyle.Render("No journal entries yet. Add one with \"haven journal add\"."))
				return nil
			}

			for _, e := range entries {
				printEntry(p, e)
			}
			p.Println(cliui.DimStyle.Render(fmt.Sprintf("%d entries", len(entries))))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// printEntry prints an entry's header line and its text.
func printEntry(p *cliui.Printer, e *journal.Entry) {
	header := fmt.Sprintf("%s  %s",
		cliui.KeyStyle.Render(e.CreatedAt.Local().Format("Mon Jan 2 2006 15:04")),
		cliui.DimStyle.Render(e.ID),
	)
	if e.SentimentScore != nil {
		header += "  " + cliui.MoodBadge(*e.SentimentScore)
	}
	if e.MoodLabel != nil && *e.MoodLabel != "" {
		header += "  " + cliui.ValueStyle.Render(*e.MoodLabel)
	}

	p.Println(header)
	p.Printf("  %s\n\n", e.Content)
}
