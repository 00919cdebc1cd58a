package breathecmder

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/haven/pkg/breathing"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

const (
	tickInterval = 100 * time.Millisecond

	// circleRadius is the radius of a full breath, in rows.
	circleRadius = 6
	minRadius    = 1.0
	barWidth     = 36
)

var (
	breatheTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	breatheMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	breatheLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	breathePausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	breatheCircleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("79"))
)

type breatheKeyMap struct {
	Pause key.Binding
	Quit  key.Binding
}

func (k breatheKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Quit}
}

func (k breatheKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Quit}}
}

func defaultKeyMap() breatheKeyMap {
	return breatheKeyMap{
		Pause: key.NewBinding(key.WithKeys(" ", "space", "p"), key.WithHelp("space", "pause")),
		Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type tickMsg time.Time

func tick() bubbletea.Cmd {
	return bubbletea.Tick(tickInterval, func(t time.Time) bubbletea.Msg {
		return tickMsg(t)
	})
}

type breatheModel struct {
	pattern breathing.Pattern

	// cycles is how many cycles to run; zero runs until quit.
	cycles int

	elapsed  time.Duration
	lastTick time.Time
	paused   bool
	finished bool

	width    int
	keys     breatheKeyMap
	help     help.Model
	progress progress.Model
}

func runBreatheTUI(ctx context.Context, pattern breathing.Pattern, cycles int) (breatheModel, error) {
	program := bubbletea.NewProgram(newBreatheModel(pattern, cycles),
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)

	final, err := program.Run()
	if err != nil {
		return breatheModel{}, err
	}

	m, ok := final.(breatheModel)
	if !ok {
		return breatheModel{}, fmt.Errorf("unexpected model %T", final)
	}
	return m, nil
}

func newBreatheModel(pattern breathing.Pattern, cycles int) breatheModel {
	return breatheModel{
		pattern:  pattern,
		cycles:   cycles,
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithGradient("#5A56E0", "#4FD1C5"), progress.WithWidth(barWidth), progress.WithoutPercentage()),
	}
}

func (m breatheModel) Init() bubbletea.Cmd {
	return tick()
}

func (m breatheModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m.advance(time.Time(msg))

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			// Time spent paused does not count.
			m.lastTick = time.Time{}
			return m, nil
		}
	}

	return m, nil
}

// advance moves the exercise on to now. Ticks keep coming while paused so the
// exercise resumes without a new command.
func (m breatheModel) advance(now time.Time) (bubbletea.Model, bubbletea.Cmd) {
	if !m.paused && !m.lastTick.IsZero() && now.After(m.lastTick) {
		m.elapsed += now.Sub(m.lastTick)
	}
	m.lastTick = now

	if m.cycles > 0 {
		total := time.Duration(m.cycles) * m.pattern.Cycle()
		if m.elapsed >= total {
			m.elapsed = total
			m.finished = true
			return m, bubbletea.Quit
		}
	}
	return m, tick()
}

func (m breatheModel) View() string {
	pos := m.pattern.At(m.elapsed)

	var b strings.Builder
	b.WriteString("\n  " + breatheTitleStyle.Render("haven · breathe") + "\n\n")
	b.WriteString(breatheCircleStyle.Render(drawCircle(circleRadius, m.radius(pos))))
	b.WriteString("\n\n")

	label := breatheLabelStyle.Render(pos.Label)
	if m.paused {
		label = breathePausedStyle.Render("Paused")
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n\n", label, breatheMutedStyle.Render(fmt.Sprintf("%ds", pos.Remaining))))
	b.WriteString("  " + m.progress.ViewAs(pos.Progress) + "\n\n")

	cycles := fmt.Sprintf("cycle %d", pos.Cycles+1)
	if m.cycles > 0 {
		cycles = fmt.Sprintf("cycle %d of %d", min(pos.Cycles+1, m.cycles), m.cycles)
	}
	b.WriteString("  " + breatheMutedStyle.Render(cycles) + "\n\n")
	b.WriteString("  " + m.help.View(m.keys) + "\n")
	return b.String()
}

// radius is the guide circle's size at pos: it fills on inhale, empties on
// exhale and keeps the size the last breath left it at through a hold.
func (m breatheModel) radius(pos breathing.Position) float64 {
	return minRadius + (circleRadius-minRadius)*fullness(m.pattern, pos)
}

func fullness(pattern breathing.Pattern, pos breathing.Position) float64 {
	switch {
	case pos.Expanding:
		return pos.Progress
	case pos.Contracting:
		return 1 - pos.Progress
	}

	for i := pos.Index - 1; i >= 0; i-- {
		switch pattern[i].Label {
		case "Inhale":
			return 1
		case "Exhale":
			return 0
		}
	}
	return 0
}

// drawCircle renders a circle of radius r centered in a fixed box sized for
// maxRadius, so the layout holds still as the circle breathes. Columns are
// doubled to make up for terminal cells being about twice as tall as wide.
func drawCircle(maxRadius int, r float64) string {
	lines := make([]string, 0, 2*maxRadius+1)
	for y := -maxRadius; y <= maxRadius; y++ {
		var line strings.Builder
		line.WriteString("  ")
		for x := -2 * maxRadius; x <= 2*maxRadius; x++ {
			dx := float64(x) / 2
			if math.Hypot(dx, float64(y)) <= r {
				line.WriteString("●")
			} else {
				line.WriteString(" ")
			}
		}
		lines = append(lines, strings.TrimRight(line.String(), " "))
	}
	return strings.Join(lines, "\n")
}
