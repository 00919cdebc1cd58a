// Package inmemory provides map-backed journal and session stores.
package inmemory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/storage"
)

// Driver implements storage.Driver and storage.SessionDriver using in-memory
// maps. Values are copied in and out so callers never share state with the
// store.
type Driver struct {
	// mu is a read write sync mutex for locking both maps
	mu sync.RWMutex

	entries  map[string]*journal.Entry
	sessions map[string]*chat.Session
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		entries:  make(map[string]*journal.Entry),
		sessions: make(map[string]*chat.Session),
	}
}

func copyEntry(e *journal.Entry) *journal.Entry {
	c := *e
	if e.MoodLabel != nil {
		label := *e.MoodLabel
		c.MoodLabel = &label
	}
	if e.SentimentScore != nil {
		score := *e.SentimentScore
		c.SentimentScore = &score
	}
	return &c
}

func copySession(s *chat.Session) *chat.Session {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.Mood = slices.Clone(s.Mood)
	return &c
}

// PutEntry inserts or replaces an entry.
func (d *Driver) PutEntry(_ context.Context, e *journal.Entry) error {
	if e == nil {
		return errors.New("cannot store nil entry")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[e.ID] = copyEntry(e)
	return nil
}

// GetEntry retrieves an entry by ID.
func (d *Driver) GetEntry(_ context.Context, id string) (*journal.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: storage.KindEntry, ID: id}
	}
	return copyEntry(e), nil
}

// ListEntries returns a user's entries, oldest first.
func (d *Driver) ListEntries(_ context.Context, userID string) ([]*journal.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []*journal.Entry{}
	for _, e := range d.entries {
		if e.UserID == userID {
			result = append(result, copyEntry(e))
		}
	}

	slices.SortFunc(result, func(a, b *journal.Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// UpdateEntryScore records an entry's sentiment and label.
func (d *Driver) UpdateEntryScore(_ context.Context, id string, sentiment float64, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[id]
	if !ok {
		return storage.NotFoundError{Kind: storage.KindEntry, ID: id}
	}
	e.SentimentScore = &sentiment
	e.MoodLabel = &label
	return nil
}

// DeleteEntry removes an entry.
func (d *Driver) DeleteEntry(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[id]; !ok {
		return storage.NotFoundError{Kind: storage.KindEntry, ID: id}
	}
	delete(d.entries, id)
	return nil
}

// PutSession inserts or replaces a session.
func (d *Driver) PutSession(_ context.Context, s *chat.Session) error {
	if s == nil {
		return errors.New("cannot store nil session")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sessions[s.ID] = copySession(s)
	return nil
}

// GetSession retrieves a session by ID.
func (d *Driver) GetSession(_ context.Context, id string) (*chat.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: storage.KindSession, ID: id}
	}
	return copySession(s), nil
}

// ListSessions returns a user's sessions, most recently updated first.
func (d *Driver) ListSessions(_ context.Context, userID string) ([]*chat.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []*chat.Session{}
	for _, s := range d.sessions {
		if s.UserID == userID {
			result = append(result, copySession(s))
		}
	}

	slices.SortFunc(result, func(a, b *chat.Session) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// DeleteSession removes a session.
func (d *Driver) DeleteSession(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[id]; !ok {
		return storage.NotFoundError{Kind: storage.KindSession, ID: id}
	}
	delete(d.sessions, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

var (
	_ storage.Driver        = (*Driver)(nil)
	_ storage.SessionDriver = (*Driver)(nil)
)
