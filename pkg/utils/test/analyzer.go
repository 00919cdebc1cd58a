package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/haven/pkg/journal"
)

// MockAnalyzer is a test journal.Analyzer that records its inputs and
// returns a configured result.
type MockAnalyzer struct {
	mu    sync.Mutex
	calls [][]journal.Input

	// Result is returned when Err is nil. When Result is nil every entry is
	// scored 0.5 "neutral" with a stable drift.
	Result *journal.DriftAnalysis
	Err    error
}

func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

func (m *MockAnalyzer) Analyze(_ context.Context, entries []journal.Input) (*journal.DriftAnalysis, error) {
	m.mu.Lock()
	m.calls = append(m.calls, entries)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}

	analysis := &journal.DriftAnalysis{
		DriftDirection: journal.DriftStable,
		Summary:        "Your entries have been steady.",
	}
	for i := range entries {
		analysis.EntryScores = append(analysis.EntryScores, journal.EntryScore{
			Index:     i + 1,
			Sentiment: 0.5,
			Emotion:   "neutral",
		})
	}
	return analysis, nil
}

// Calls returns the inputs of every Analyze call.
func (m *MockAnalyzer) Calls() [][]journal.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]journal.Input(nil), m.calls...)
}
