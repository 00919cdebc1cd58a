package storage

import (
	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
)

const (
	KindEntry   = "journal entry"
	KindSession = "session"
)

// NotFoundError is returned when an entry or session doesn't exist in the
// store. It matches journal.ErrEntryNotFound or chat.ErrSessionNotFound with
// errors.Is, depending on Kind.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "record"
	}
	if e.ID == "" {
		return kind + " not found"
	}
	return kind + " not found: " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	switch e.Kind {
	case KindEntry:
		return target == journal.ErrEntryNotFound
	case KindSession:
		return target == chat.ErrSessionNotFound
	}
	return false
}
