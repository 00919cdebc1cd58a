// Package storage defines the persistence drivers for journal entries and
// chat sessions. Backends live in subpackages.
package storage

import (
	"context"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
)

// Driver persists journal entries.
type Driver interface {
	// PutEntry inserts or replaces an entry.
	PutEntry(ctx context.Context, e *journal.Entry) error

	// GetEntry returns an entry by ID or a NotFoundError.
	GetEntry(ctx context.Context, id string) (*journal.Entry, error)

	// ListEntries returns a user's entries ordered by creation time, oldest
	// first.
	ListEntries(ctx context.Context, userID string) ([]*journal.Entry, error)

	// UpdateEntryScore records the sentiment and emotion label drift analysis
	// assigned to an entry.
	UpdateEntryScore(ctx context.Context, id string, sentiment float64, label string) error

	// DeleteEntry removes an entry. Deleting a missing entry is a NotFoundError.
	DeleteEntry(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}

// SessionDriver persists chat sessions.
type SessionDriver interface {
	// PutSession inserts or replaces a session.
	PutSession(ctx context.Context, s *chat.Session) error

	// GetSession returns a session by ID or a NotFoundError.
	GetSession(ctx context.Context, id string) (*chat.Session, error)

	// ListSessions returns a user's sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string) ([]*chat.Session, error)

	// DeleteSession removes a session. Deleting a missing session is a
	// NotFoundError.
	DeleteSession(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}

var (
	_ journal.Store     = Driver(nil)
	_ chat.SessionStore = SessionDriver(nil)
)
