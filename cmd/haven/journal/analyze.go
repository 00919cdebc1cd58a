package journalcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/api"
	"github.com/papercomputeco/haven/pkg/cliui"
)

const analyzeLongDesc string = `Analyze the emotional drift across your journal.

Every entry is scored for sentiment (0 very negative, 1 very positive) and its
dominant emotion, and the overall direction is reported with a short summary.
Scores are saved on the entries. At least two entries are needed.`

func newAnalyzeCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze emotional drift across entries",
		Long:  analyzeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			var resp *api.AnalyzeResponse
			err = cliui.Step(cmd.ErrOrStderr(), "Analyzing journal", func() error {
				var err error
				resp, err = c.Analyze(cmd.Context())
				return err
			})
			if err != nil {
				return fmt.Errorf("analyzing journal: %w", err)
			}

			printAnalysis(cliui.NewPrinter(cmd.OutOrStdout()), resp)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func printAnalysis(p *cliui.Printer, resp *api.AnalyzeResponse) {
	var scores []float64
	for _, e := range resp.Entries {
		if e.SentimentScore != nil {
			scores = append(scores, *e.SentimentScore)
		}
	}

	p.Println("")
	p.Printf("  %s %s\n", cliui.KeyStyle.Render("Drift:"), cliui.DriftBadge(string(resp.Analysis.DriftDirection)))
	if len(scores) > 0 {
		p.Printf("  %s %s  %s\n",
			cliui.KeyStyle.Render("Mood:"),
			cliui.Sparkline(scores),
			cliui.MoodBadge(scores[len(scores)-1]),
		)
	}

	rendered, err := cliui.RenderMarkdown(resp.Analysis.Summary)
	if err != nil {
		rendered = resp.Analysis.Summary
	}
	p.Printf("\n%s\n", strings.TrimRight(rendered, "\n"))
}
