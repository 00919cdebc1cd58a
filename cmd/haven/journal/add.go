package journalcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/cliui"
	"github.com/papercomputeco/haven/pkg/journal"
)

const addLongDesc string = `Add a journal entry.

The entry text is taken from the arguments, joined with spaces. With no
arguments, or "-", it is read from standard input. Entries are limited to
2000 characters.

Examples:
  haven journal add "Grateful for a quiet morning."
  echo "Long day at work." | haven journal add`

func newAddCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Add a journal entry",
		Long:  addLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := entryText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			entry, err := c.SaveEntry(cmd.Context(), content)
			if err != nil {
				return fmt.Errorf("saving entry: %w", err)
			}

			p := cliui.NewPrinter(cmd.OutOrStdout())
			p.Printf("%s Saved entry %s\n", cliui.SuccessMark, cliui.NameStyle.Render(entry.ID))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// entryText joins args, or reads stdin when there are none.
func entryText(stdin io.Reader, args []string) (string, error) {
	var content string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(io.LimitReader(stdin, 4*journal.MaxEntryLength+1))
		if err != nil {
			return "", fmt.Errorf("reading entry: %w", err)
		}
		content = string(data)
	} else {
		content = strings.Join(args, " ")
	}

	if strings.TrimSpace(content) == "" {
		return "", journal.ErrEmptyEntry
	}
	return content, nil
}
