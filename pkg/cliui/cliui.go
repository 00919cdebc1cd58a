// Package cliui provides reusable terminal UI helpers for haven CLI commands:
// step spinners, mood and drift badges, sparklines and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/papercomputeco/haven/pkg/mood"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	moodStyles = map[mood.Label]lipgloss.Style{
		mood.LabelPositive: lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true),
		mood.LabelNeutral:  lipgloss.NewStyle().Foreground(lipgloss.Color("179")).Bold(true),
		mood.LabelLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("147")).Bold(true),
	}

	driftStyles = map[string]lipgloss.Style{
		"improving": lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		"stable":    lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		"declining": lipgloss.NewStyle().Foreground(lipgloss.Color("147")),
		"volatile":  lipgloss.NewStyle().Foreground(lipgloss.Color("179")),
	}
)

// sparkBlocks are the eight heights of a sparkline cell.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// spinnerFrames matches bubbletea's spinner.Dot pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	var mu sync.Mutex

	// Run spinner animation in background
	go func() {
		defer close(stopped)
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	// Clear the spinner line and print final result
	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// MoodBadge renders a sentiment score with its label, e.g. "Neutral (0.55)".
func MoodBadge(score float64) string {
	label := mood.LabelFor(score)
	return moodStyles[label].Render(fmt.Sprintf("%s (%.2f)", label, score))
}

// DriftBadge renders a drift direction. Unknown directions are left unstyled.
func DriftBadge(direction string) string {
	style, ok := driftStyles[direction]
	if !ok {
		return direction
	}

	arrow := map[string]string{
		"improving": "↗",
		"stable":    "→",
		"declining": "↘",
		"volatile":  "↕",
	}[direction]
	return style.Render(arrow + " " + direction)
}

// Sparkline draws scores in 0..1 as one block per value. Values outside the
// range are clamped.
func Sparkline(scores []float64) string {
	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, s := range scores {
		i := int(s*float64(top) + 0.5)
		i = max(0, min(top, i))
		b.WriteRune(sparkBlocks[i])
	}
	return b.String()
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes styled output, stripping escape sequences when the
// destination is not a terminal.
type Printer struct {
	w     io.Writer
	plain bool
}

// NewPrinter returns a Printer for w. Output to anything but a terminal
// *os.File is plain.
func NewPrinter(w io.Writer) *Printer {
	f, ok := w.(*os.File)
	return &Printer{w: w, plain: !ok || !IsTerminal(f)}
}

// Printf formats like fmt.Fprintf.
func (p *Printer) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if p.plain {
		s = ansi.Strip(s)
	}
	fmt.Fprint(p.w, s)
}

// Println prints s followed by a newline.
func (p *Printer) Println(s string) {
	p.Printf("%s\n", s)
}
