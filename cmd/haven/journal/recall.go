package journalcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/cliui"
)

const recallLongDesc string = `Find past entries close in meaning to a query.

Recall needs the server to run with a vector store and an embedding provider.

Examples:
  haven journal recall "when work felt overwhelming"
  haven journal recall -k 3 "good days"`

func newRecallCmd() *cobra.Command {
	flags := &clientFlags{}
	var topK int

	cmd := &cobra.Command{
		Use:   "recall <query...>",
		Short: "Search entries by meaning",
		Long:  recallLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			results, err := c.Recall(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("recalling entries: %w", err)
			}

			p := cliui.NewPrinter(cmd.OutOrStdout())
			if results.Count == 0 {
				p.Println(cliui.DimStyle.Render("No matching entries."))
				return nil
			}

			for _, r := range results.Results {
				p.Printf("%s ", cliui.DimStyle.Render(fmt.Sprintf("%.2f", r.Score)))
				printEntry(p, r.Entry)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&topK, "top", "k", 5, "Number of entries to return")
	return cmd
}
