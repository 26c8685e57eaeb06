package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS credentials (
		user_id       TEXT NOT NULL,
		provider      TEXT NOT NULL,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at    TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		PRIMARY KEY (user_id, provider)
	)`,

	`CREATE TABLE IF NOT EXISTS conversation_sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversation_sessions_user ON conversation_sessions(user_id)`,

	`CREATE TABLE IF NOT EXISTS conversation_turns (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES conversation_sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		role       TEXT NOT NULL CHECK(role IN ('user','model')),
		parts      TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (session_id, seq)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns(session_id)`,

	// Personality chosen for the session, replayed into every synthesis prompt.
	`ALTER TABLE conversation_sessions ADD COLUMN personality TEXT NOT NULL DEFAULT ''`,
}
