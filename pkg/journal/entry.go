// Package journal keeps users' journal entries and asks the LLM gateway to
// score emotional drift across them.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxEntryLength is the longest entry accepted, in characters.
const MaxEntryLength = 2000

// MinEntriesForAnalysis is the fewest stored entries drift can be analyzed
// over.
const MinEntriesForAnalysis = 2

var (
	// ErrEmptyEntry is returned for content that is blank after trimming.
	ErrEmptyEntry = errors.New("journal entry is empty")

	// ErrEntryTooLong is returned for content over MaxEntryLength characters.
	ErrEntryTooLong = fmt.Errorf("journal entry exceeds %d characters", MaxEntryLength)
)

// Entry is a stored journal entry. MoodLabel and SentimentScore are filled in
// by drift analysis.
type Entry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Content        string    `json:"content"`
	MoodLabel      *string   `json:"mood_label"`
	SentimentScore *float64  `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEntry validates content and returns an unsaved entry for userID.
func NewEntry(userID, content string, now time.Time) (*Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyEntry
	}
	if utf8.RuneCountInString(content) > MaxEntryLength {
		return nil, ErrEntryTooLong
	}

	return &Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		CreatedAt: now.UTC(),
	}, nil
}

// Input is the part of an entry the analyzer sees.
type Input struct {
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Inputs converts entries, oldest first, into analyzer input.
func Inputs(entries []*Entry) []Input {
	out := make([]Input, len(entries))
	for i, e := range entries {
		out[i] = Input{
			Content:   e.Content,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

// Drift is the overall direction of sentiment across entries.
type Drift string

const (
	DriftImproving Drift = "improving"
	DriftDeclining Drift = "declining"
	DriftStable    Drift = "stable"
	DriftVolatile  Drift = "volatile"
)

// Valid reports whether d is one of the known directions.
func (d Drift) Valid() bool {
	switch d {
	case DriftImproving, DriftDeclining, DriftStable, DriftVolatile:
		return true
	}
	return false
}

// EntryScore scores one entry. Index is 1-based in the order entries were
// submitted.
type EntryScore struct {
	Index     int     `json:"index"`
	Sentiment float64 `json:"sentiment"`
	Emotion   string  `json:"emotion"`
}

// UnmarshalJSON accepts an index written as a float ("index": 2.0), which
// models emit for schema "number" fields.
func (s *EntryScore) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index     float64 `json:"index"`
		Sentiment float64 `json:"sentiment"`
		Emotion   string  `json:"emotion"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = EntryScore{
		Index:     int(raw.Index),
		Sentiment: raw.Sentiment,
		Emotion:   raw.Emotion,
	}
	return nil
}

// DriftAnalysis is the structured result of analyzing a run of entries.
type DriftAnalysis struct {
	EntryScores    []EntryScore `json:"entry_scores"`
	DriftDirection Drift        `json:"drift_direction"`
	Summary        string       `json:"summary"`
}

// Error is a failure with the HTTP status it should be reported with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
