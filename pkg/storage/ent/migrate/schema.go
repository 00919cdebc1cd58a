// Package migrate holds the table definitions for the SQL stores and creates
// them with ent's schema migrator.
package migrate

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	JournalEntriesTableName = "journal_entries"
	ChatSessionsTableName   = "chat_sessions"

	textSize = 2147483647
)

var (
	// JournalEntriesColumns holds the columns for the "journal_entries" table.
	JournalEntriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "mood_label", Type: field.TypeString, Nullable: true},
		{Name: "sentiment_score", Type: field.TypeFloat64, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// JournalEntriesTable holds the schema information for the "journal_entries" table.
	JournalEntriesTable = &schema.Table{
		Name:       JournalEntriesTableName,
		Columns:    JournalEntriesColumns,
		PrimaryKey: []*schema.Column{JournalEntriesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "journalentry_user_id_created_at",
				Unique:  false,
				Columns: []*schema.Column{JournalEntriesColumns[1], JournalEntriesColumns[5]},
			},
		},
	}

	// ChatSessionsColumns holds the columns for the "chat_sessions" table.
	// The transcript and mood series are stored as one JSON document.
	ChatSessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "data", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ChatSessionsTable holds the schema information for the "chat_sessions" table.
	ChatSessionsTable = &schema.Table{
		Name:       ChatSessionsTableName,
		Columns:    ChatSessionsColumns,
		PrimaryKey: []*schema.Column{ChatSessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "chatsession_user_id_updated_at",
				Unique:  false,
				Columns: []*schema.Column{ChatSessionsColumns[1], ChatSessionsColumns[4]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		JournalEntriesTable,
		ChatSessionsTable,
	}
)

// Create runs the append-only auto-migration: missing tables, columns and
// indexes are added.
func Create(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	return m.Create(ctx, Tables...)
}
