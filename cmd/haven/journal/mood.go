package journalcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/cliui"
)

func newMoodCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Show the sentiment of analyzed entries over time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			resp, err := c.JournalMood(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading journal mood: %w", err)
			}

			p := cliui.NewPrinter(cmd.OutOrStdout())
			if len(resp.Series) == 0 {
				p.Println(cliui.DimStyle.Render("No analyzed entries yet. Run \"haven journal analyze\" first."))
				return nil
			}

			scores := make([]float64, len(resp.Series))
			for i, pt := range resp.Series {
				scores[i] = pt.Sentiment
			}

			s := resp.Summary
			p.Printf("%s %s\n", cliui.KeyStyle.Render("Mood:"), cliui.Sparkline(scores))
			p.Printf("%s %s\n", cliui.KeyStyle.Render("Latest:"), cliui.MoodBadge(s.Latest))
			p.Printf("%s %s\n", cliui.KeyStyle.Render("Range:"),
				cliui.ValueStyle.Render(fmt.Sprintf("%.2f to %.2f, mean %.2f over %d entries", s.Min, s.Max, s.Mean, s.Points)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
