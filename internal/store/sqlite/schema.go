package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ddl creates the journal schema. Statements are idempotent so startup
// can run them unconditionally.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS users (
        user_id           TEXT PRIMARY KEY,
        email             TEXT NOT NULL UNIQUE,
        display_name      TEXT,
        time_zone         TEXT NOT NULL DEFAULT 'UTC',
        locale            TEXT NOT NULL DEFAULT 'en',
        subscription_tier TEXT NOT NULL DEFAULT 'free',
        status            TEXT NOT NULL DEFAULT 'ACTIVE',
        creation_time     TIMESTAMP NOT NULL,
        last_active_time  TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS entries (
        entry_id          TEXT PRIMARY KEY,
        user_id           TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
        title             TEXT NOT NULL DEFAULT '',
        raw_transcript    TEXT NOT NULL DEFAULT '',
        formatted_content TEXT NOT NULL DEFAULT '',
        mood_score        INTEGER,
        emotions          TEXT NOT NULL DEFAULT '[]',
        insights          TEXT NOT NULL DEFAULT '[]',
        audio_filename    TEXT,
        processing_status TEXT NOT NULL DEFAULT 'pending',
        creation_time     TIMESTAMP NOT NULL,
        last_update_time  TIMESTAMP,
        entry_date        TEXT NOT NULL,
        deleted           INTEGER NOT NULL DEFAULT 0,
        deletion_time     TIMESTAMP
    )`,
	`CREATE INDEX IF NOT EXISTS idx_entries_user_created
        ON entries(user_id, creation_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_user_date
        ON entries(user_id, entry_date)`,
	`CREATE TABLE IF NOT EXISTS preferences (
        user_id                TEXT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
        custom_ai_instructions TEXT,
        goals                  TEXT NOT NULL DEFAULT '[]',
        reminder_enabled       INTEGER NOT NULL DEFAULT 0,
        reminder_time          TEXT,
        reminder_days          TEXT NOT NULL DEFAULT '[]',
        theme                  TEXT NOT NULL DEFAULT 'light',
        current_streak         INTEGER NOT NULL DEFAULT 0,
        longest_streak         INTEGER NOT NULL DEFAULT 0,
        last_entry_date        TEXT
    )`,
	`CREATE TABLE IF NOT EXISTS usage_tracking (
        user_id       TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
        month         TEXT NOT NULL,
        entry_count   INTEGER NOT NULL DEFAULT 0,
        last_entry_at TIMESTAMP,
        PRIMARY KEY (user_id, month)
    )`,
}

// EnsureSchema applies the schema to db.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: apply schema: %w", err)
		}
	}
	return nil
}
