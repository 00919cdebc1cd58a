package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a chat turn is committed to its session.
	EventTypeTurnCompleted = "haven.chat.turn_completed"

	// EventTypeDriftAnalyzed is emitted after a user's journal drift is analyzed.
	EventTypeDriftAnalyzed = "haven.journal.drift_analyzed"

	// SourceService names the emitting service.
	SourceService = "haven"
)

// EventSource identifies where the event originated.
type EventSource struct {
	Service string `json:"service"`
	Model   string `json:"model,omitempty"`
}

// TurnCompletedEvent is a transport-neutral event payload for a committed chat turn.
type TurnCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	SessionID     string      `json:"session_id"`
	UserID        string      `json:"user_id"`
	Turn          TurnMeta    `json:"turn"`
}

// TurnMeta captures the exchange and its timing.
type TurnMeta struct {
	User        chat.Message `json:"user"`
	Assistant   chat.Message `json:"assistant"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	DurationMs  int64        `json:"duration_ms"`
	Crisis      bool         `json:"crisis"`
}

// NewTurnCompletedEvent builds the event for a committed turn.
func NewTurnCompletedEvent(turn *chat.CompletedTurn, now time.Time) *TurnCompletedEvent {
	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source:        EventSource{Service: SourceService, Model: turn.Model},
		SessionID:     turn.SessionID,
		UserID:        turn.UserID,
		Turn: TurnMeta{
			User:        turn.User,
			Assistant:   turn.Assistant,
			StartedAt:   turn.StartedAt,
			CompletedAt: turn.CompletedAt,
			DurationMs:  turn.CompletedAt.Sub(turn.StartedAt).Milliseconds(),
			Crisis:      turn.User.IsCrisis,
		},
	}
}

// DriftAnalyzedEvent is a transport-neutral event payload for a journal analysis.
type DriftAnalyzedEvent struct {
	SchemaVersion int                   `json:"schema_version"`
	EventType     string                `json:"event_type"`
	EventID       string                `json:"event_id"`
	EmittedAt     time.Time             `json:"emitted_at"`
	Source        EventSource           `json:"source"`
	UserID        string                `json:"user_id"`
	EntryIDs      []string              `json:"entry_ids"`
	Analysis      journal.DriftAnalysis `json:"analysis"`
}

// NewDriftAnalyzedEvent builds the event for an analysis of entries, which
// are in the order they were sent to the analyzer.
func NewDriftAnalyzedEvent(userID string, entries []*journal.Entry, analysis *journal.DriftAnalysis, now time.Time) *DriftAnalyzedEvent {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	event := &DriftAnalyzedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDriftAnalyzed,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source:        EventSource{Service: SourceService},
		UserID:        userID,
		EntryIDs:      ids,
	}
	if analysis != nil {
		event.Analysis = *analysis
	}
	return event
}
