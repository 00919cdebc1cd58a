package journalcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/cliui"
)

func newDeleteCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			if err := c.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting entry: %w", err)
			}

			p := cliui.NewPrinter(cmd.OutOrStdout())
			p.Printf("%s Deleted entry %s\n", cliui.SuccessMark, cliui.NameStyle.Render(args[0]))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
