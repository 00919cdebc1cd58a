// Package entdriver implements the storage drivers over database/sql with
// ent's dialect-aware SQL builders. It is database-agnostic and embedded by
// the sqlite and postgres drivers.
package entdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/storage"
	"github.com/papercomputeco/haven/pkg/storage/ent/migrate"
)

var entryColumns = []string{"id", "user_id", "content", "mood_label", "sentiment_score", "created_at"}

// EntDriver provides storage operations on an ent SQL driver.
type EntDriver struct {
	Conn *entsql.Driver
}

// New wraps an open database for the given ent dialect and runs the schema
// migration.
func New(ctx context.Context, dialectName string, db *sql.DB) (*EntDriver, error) {
	conn := entsql.OpenDB(dialectName, db)
	if err := migrate.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &EntDriver{Conn: conn}, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Conn.Dialect())
}

func (ed *EntDriver) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	return ed.Conn.DB().ExecContext(ctx, query, args...)
}

// affected turns a zero-row update or delete into a NotFoundError.
func affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// PutEntry inserts or replaces an entry.
func (ed *EntDriver) PutEntry(ctx context.Context, e *journal.Entry) error {
	if e == nil {
		return errors.New("cannot store nil entry")
	}

	query, args := ed.builder().Insert(migrate.JournalEntriesTableName).
		Columns(entryColumns...).
		Values(e.ID, e.UserID, e.Content, e.MoodLabel, e.SentimentScore, e.CreatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("could not store entry: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (ed *EntDriver) GetEntry(ctx context.Context, id string) (*journal.Entry, error) {
	b := ed.builder()
	query, args := b.Select(entryColumns...).
		From(b.Table(migrate.JournalEntriesTableName)).
		Where(entsql.EQ("id", id)).
		Query()

	entries, err := ed.queryEntries(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, storage.NotFoundError{Kind: storage.KindEntry, ID: id}
	}
	return entries[0], nil
}

// ListEntries returns a user's entries, oldest first.
func (ed *EntDriver) ListEntries(ctx context.Context, userID string) ([]*journal.Entry, error) {
	b := ed.builder()
	query, args := b.Select(entryColumns...).
		From(b.Table(migrate.JournalEntriesTableName)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()

	return ed.queryEntries(ctx, query, args)
}

// UpdateEntryScore records an entry's sentiment and label.
func (ed *EntDriver) UpdateEntryScore(ctx context.Context, id string, sentiment float64, label string) error {
	query, args := ed.builder().Update(migrate.JournalEntriesTableName).
		Set("sentiment_score", sentiment).
		Set("mood_label", label).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := ed.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("could not update entry score: %w", err)
	}
	return affected(res, storage.KindEntry, id)
}

// DeleteEntry removes an entry.
func (ed *EntDriver) DeleteEntry(ctx context.Context, id string) error {
	query, args := ed.builder().Delete(migrate.JournalEntriesTableName).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := ed.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("could not delete entry: %w", err)
	}
	return affected(res, storage.KindEntry, id)
}

func (ed *EntDriver) queryEntries(ctx context.Context, query string, args []any) ([]*journal.Entry, error) {
	rows, err := ed.Conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []*journal.Entry{}
	for rows.Next() {
		var (
			e         journal.Entry
			label     sql.NullString
			sentiment sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &label, &sentiment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if label.Valid {
			e.MoodLabel = &label.String
		}
		if sentiment.Valid {
			e.SentimentScore = &sentiment.Float64
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.Conn.Close()
}

var (
	_ storage.Driver        = (*EntDriver)(nil)
	_ storage.SessionDriver = (*EntDriver)(nil)
)
