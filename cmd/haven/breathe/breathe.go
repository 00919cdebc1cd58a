// Package breathecmder provides the breathe command: a paced box-breathing
// exercise in the terminal.
package breathecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/breathing"
	"github.com/papercomputeco/haven/pkg/cliui"
)

const breatheLongDesc string = `Follow a paced box-breathing exercise.

The guide circle grows while you breathe in and shrinks while you breathe
out: in for 4 seconds, hold for 4, out for 6 and hold for 2. Press space to
pause and q to stop.

Examples:
  haven breathe
  haven breathe --cycles 4`

const breatheShortDesc string = "Follow a paced breathing exercise"

type breatheCommander struct {
	cycles int
	out    io.Writer
}

func NewBreatheCmd() *cobra.Command {
	cmder := &breatheCommander{}

	cmd := &cobra.Command{
		Use:   "breathe",
		Short: breatheShortDesc,
		Long:  breatheLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if cmder.cycles < 0 {
				return errors.New("--cycles cannot be negative")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&cmder.cycles, "cycles", "c", 0, "Stop after this many cycles (0 runs until you quit)")

	return cmd
}

func (c *breatheCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := runBreatheTUI(ctx, breathing.Box, c.cycles)
	if err != nil {
		return err
	}

	printSummary(c.out, breathing.Box, result)
	return nil
}

func printSummary(w io.Writer, pattern breathing.Pattern, m breatheModel) {
	p := cliui.NewPrinter(w)
	cycles := pattern.At(m.elapsed).Cycles

	if m.finished {
		p.Printf("\n  %s Completed %s in %s\n\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(pluralCycles(cycles)),
			m.elapsed.Truncate(time.Second).String(),
		)
		return
	}

	p.Printf("\n  %s Stopped after %s %s\n\n",
		cliui.DimStyle.Render("●"),
		pluralCycles(cycles),
		cliui.DimStyle.Render(fmt.Sprintf("(%s)", m.elapsed.Truncate(time.Second).String())),
	)
}

func pluralCycles(n int) string {
	if n == 1 {
		return "1 cycle"
	}
	return fmt.Sprintf("%d cycles", n)
}
