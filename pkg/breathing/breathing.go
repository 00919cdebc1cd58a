// Package breathing describes the paced box-breathing exercise: four phases
// repeated in a fixed cycle.
package breathing

import "time"

// Phase is one step of the cycle.
type Phase struct {
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration"`
}

// Pattern is an ordered cycle of phases.
type Pattern []Phase

// Box is inhale 4s, hold 4s, exhale 6s, hold 2s.
var Box = Pattern{
	{Label: "Inhale", Duration: 4 * time.Second},
	{Label: "Hold", Duration: 4 * time.Second},
	{Label: "Exhale", Duration: 6 * time.Second},
	{Label: "Hold", Duration: 2 * time.Second},
}

// Cycle returns the length of one full cycle.
func (p Pattern) Cycle() time.Duration {
	var total time.Duration
	for _, ph := range p {
		total += ph.Duration
	}
	return total
}

// Position is where an exercise stands at some elapsed time.
type Position struct {
	Index int    `json:"index"`
	Label string `json:"label"`

	// Remaining is the whole seconds left in the phase, counting down to 1.
	Remaining int `json:"remaining"`

	// Expanding and Contracting drive the guide circle: it grows on inhale,
	// shrinks on exhale and holds still otherwise.
	Expanding   bool `json:"expanding"`
	Contracting bool `json:"contracting"`

	// Progress is the fraction of the phase already elapsed, in [0, 1).
	Progress float64 `json:"progress"`

	// Cycles counts completed cycles.
	Cycles int `json:"cycles"`
}

// At returns the position elapsed into the exercise. Negative elapsed is
// treated as the start.
func (p Pattern) At(elapsed time.Duration) Position {
	cycle := p.Cycle()
	if len(p) == 0 || cycle <= 0 {
		return Position{}
	}
	if elapsed < 0 {
		elapsed = 0
	}

	pos := Position{Cycles: int(elapsed / cycle)}
	offset := elapsed % cycle

	for i, ph := range p {
		if offset < ph.Duration {
			left := ph.Duration - offset
			pos.Index = i
			pos.Label = ph.Label
			pos.Remaining = int((left + time.Second - 1) / time.Second)
			pos.Progress = float64(offset) / float64(ph.Duration)
			pos.Expanding = ph.Label == "Inhale"
			pos.Contracting = ph.Label == "Exhale"
			return pos
		}
		offset -= ph.Duration
	}

	// Unreachable while offset < cycle.
	return pos
}
