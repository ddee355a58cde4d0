package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records progress.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calendars (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		name       TEXT NOT NULL CHECK (length(name) > 0),
		color      TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calendars_user ON calendars(user_id);

	CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		calendar_id TEXT NOT NULL REFERENCES calendars(id),
		title       TEXT NOT NULL CHECK (length(title) > 0),
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '',
		day         INTEGER NOT NULL CHECK (day BETWEEN 0 AND 6),
		date        TEXT NOT NULL,
		attendees   TEXT NOT NULL DEFAULT '[]',
		organizer   TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id);
	CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);

	-- event_id carries no foreign key: a notification is a weak reference
	-- that must survive cascade deletion of its event.
	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		event_id   TEXT,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		timestamp  TEXT NOT NULL,
		read       INTEGER NOT NULL DEFAULT 0,
		type       TEXT NOT NULL CHECK (type IN ('reminder','invitation','update')),
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);

	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		token      TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	`,
}

// Migrate brings the schema up to the current version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	var version int
	if err := cp.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		stmts := migrations[i]
		if err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, stmts); err != nil {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
			return nil
		}); err != nil {
			return err
		}
		if _, err := cp.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}

	return nil
}
