package entdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/storage"
	"github.com/papercomputeco/haven/pkg/storage/ent/migrate"
)

// PutSession inserts or replaces a session, storing the transcript and mood
// series as JSON.
func (ed *EntDriver) PutSession(ctx context.Context, s *chat.Session) error {
	if s == nil {
		return errors.New("cannot store nil session")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query, args := ed.builder().Insert(migrate.ChatSessionsTableName).
		Columns("id", "user_id", "data", "created_at", "updated_at").
		Values(s.ID, s.UserID, string(data), s.CreatedAt.UTC(), s.UpdatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("could not store session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (ed *EntDriver) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	b := ed.builder()
	query, args := b.Select("data").
		From(b.Table(migrate.ChatSessionsTableName)).
		Where(entsql.EQ("id", id)).
		Query()

	sessions, err := ed.querySessions(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, storage.NotFoundError{Kind: storage.KindSession, ID: id}
	}
	return sessions[0], nil
}

// ListSessions returns a user's sessions, most recently updated first.
func (ed *EntDriver) ListSessions(ctx context.Context, userID string) ([]*chat.Session, error) {
	b := ed.builder()
	query, args := b.Select("data").
		From(b.Table(migrate.ChatSessionsTableName)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("updated_at"), entsql.Asc("id")).
		Query()

	return ed.querySessions(ctx, query, args)
}

// DeleteSession removes a session.
func (ed *EntDriver) DeleteSession(ctx context.Context, id string) error {
	query, args := ed.builder().Delete(migrate.ChatSessionsTableName).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := ed.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("could not delete session: %w", err)
	}
	return affected(res, storage.KindSession, id)
}

func (ed *EntDriver) querySessions(ctx context.Context, query string, args []any) ([]*chat.Session, error) {
	rows, err := ed.Conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*chat.Session{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		var s chat.Session
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}
