// Package mirror keeps the client's local SQLite copy of server state plus
// the offline mutation queue. Snapshot writes are last-writer-wins at
// whole-collection granularity; reads while offline are served from here.
package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/flowfly/internal/client/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendars (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL,
	is_default INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	calendar_id TEXT NOT NULL,
	title       TEXT NOT NULL,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	day         INTEGER NOT NULL,
	date        TEXT NOT NULL,
	attendees   TEXT NOT NULL DEFAULT '[]',
	organizer   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS mutations (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	entity     TEXT NOT NULL,
	op         TEXT NOT NULL,
	target_id  TEXT NOT NULL,
	payload    BLOB NOT NULL,
	state      TEXT NOT NULL DEFAULT 'pending',
	last_error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the SQLite-backed mirror plus queue.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the mirror database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open mirror database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply mirror schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ReplaceAllCalendars swaps the whole calendar collection for the given
// server snapshot.
func (s *Store) ReplaceAllCalendars(ctx context.Context, calendars []models.Calendar) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM calendars`); err != nil {
			return err
		}
		for _, calendar := range calendars {
			if err := upsertCalendar(ctx, tx, calendar); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceAllEvents swaps the whole event collection for the given server
// snapshot.
func (s *Store) ReplaceAllEvents(ctx context.Context, events []models.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
			return err
		}
		for _, event := range events {
			if err := upsertEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, is_default FROM calendars ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select calendars: %w", err)
	}
	defer rows.Close()

	var result []models.Calendar
	for rows.Next() {
		var calendar models.Calendar
		var isDefault int
		if err := rows.Scan(&calendar.ID, &calendar.Name, &calendar.Color, &isDefault); err != nil {
			return nil, err
		}
		calendar.IsDefault = isDefault != 0
		result = append(result, calendar)
	}
	return result, rows.Err()
}

func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, calendar_id, title, start_time, end_time, description, location, color, day, date, attendees, organizer FROM events ORDER BY date, start_time`)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var result []models.Event
	for rows.Next() {
		var event models.Event
		var attendees string
		if err := rows.Scan(&event.ID, &event.CalendarID, &event.Title, &event.StartTime, &event.EndTime,
			&event.Description, &event.Location, &event.Color, &event.Day, &event.Date, &attendees, &event.Organizer); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attendees), &event.Attendees); err != nil {
			event.Attendees = nil
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// UpsertCalendar applies one optimistic local write.
func (s *Store) UpsertCalendar(ctx context.Context, calendar models.Calendar) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertCalendar(ctx, tx, calendar)
	})
}

// DeleteCalendar removes the calendar and its events locally, matching the
// server's cascade.
func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE calendar_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM calendars WHERE id = ?`, id)
		return err
	})
}

func (s *Store) UpsertEvent(ctx context.Context, event models.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertEvent(ctx, tx, event)
	})
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// SetPendingChanges records whether unsynced local changes exist.
func (s *Store) SetPendingChanges(ctx context.Context, pending bool) error {
	value := "0"
	if pending {
		value = "1"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('pending_changes', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		value)
	return err
}

func (s *Store) PendingChanges(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'pending_changes'`).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// EnqueueMutation appends a record to the replay queue and raises the
// pending-changes flag.
func (s *Store) EnqueueMutation(ctx context.Context, record models.MutationRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mutations (id, entity, op, target_id, payload, state, last_error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.Entity, record.Op, record.TargetID, record.Payload,
			models.MutationPending, "", record.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("enqueue mutation: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES ('pending_changes', '1') ON CONFLICT(key) DO UPDATE SET value = '1'`)
		return err
	})
}

// ListRetryable returns pending and failed records in enqueue order.
func (s *Store) ListRetryable(ctx context.Context) ([]models.MutationRecord, error) {
	return s.listMutations(ctx, `SELECT id, entity, op, target_id, payload, state, last_error, created_at FROM mutations WHERE state IN ('pending', 'failed') ORDER BY seq`)
}

// ListMutations returns every record in enqueue order, for status display.
func (s *Store) ListMutations(ctx context.Context) ([]models.MutationRecord, error) {
	return s.listMutations(ctx, `SELECT id, entity, op, target_id, payload, state, last_error, created_at FROM mutations ORDER BY seq`)
}

func (s *Store) listMutations(ctx context.Context, query string) ([]models.MutationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select mutations: %w", err)
	}
	defer rows.Close()

	var result []models.MutationRecord
	for rows.Next() {
		var record models.MutationRecord
		var createdAt string
		if err := rows.Scan(&record.ID, &record.Entity, &record.Op, &record.TargetID,
			&record.Payload, &record.State, &record.LastError, &createdAt); err != nil {
			return nil, err
		}
		record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, record)
	}
	return result, rows.Err()
}

// MarkMutation transitions a record's state and records the last error text.
func (s *Store) MarkMutation(ctx context.Context, id, state, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE mutations SET state = ?, last_error = ? WHERE id = ?`, state, lastError, id)
	return err
}

// GetMutation re-reads a single queue record. Replay uses it to pick up
// payload rewrites made by earlier records in the same pass.
func (s *Store) GetMutation(ctx context.Context, id string) (models.MutationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, entity, op, target_id, payload, state, last_error, created_at FROM mutations WHERE id = ?`, id)

	var record models.MutationRecord
	var createdAt string
	if err := row.Scan(&record.ID, &record.Entity, &record.Op, &record.TargetID,
		&record.Payload, &record.State, &record.LastError, &createdAt); err != nil {
		return models.MutationRecord{}, fmt.Errorf("select mutation: %w", err)
	}
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return record, nil
}

// ClearCommitted drops committed records and lowers the pending flag when the
// queue holds nothing retryable anymore.
func (s *Store) ClearCommitted(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM mutations WHERE state = 'committed'`); err != nil {
			return err
		}
		var remaining int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM mutations WHERE state IN ('pending', 'failed')`).Scan(&remaining); err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO meta (key, value) VALUES ('pending_changes', '0') ON CONFLICT(key) DO UPDATE SET value = '0'`); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemapProvisionalID rewrites a provisional id to the server-assigned one:
// in the snapshot tables and inside every still-retryable queue record,
// both its target and any payload reference.
func (s *Store) RemapProvisionalID(ctx context.Context, entity, provisionalID, serverID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		switch entity {
		case models.EntityCalendar:
			if _, err := tx.ExecContext(ctx, `UPDATE calendars SET id = ? WHERE id = ?`, serverID, provisionalID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE events SET calendar_id = ? WHERE calendar_id = ?`, serverID, provisionalID); err != nil {
				return err
			}
		case models.EntityEvent:
			if _, err := tx.ExecContext(ctx, `UPDATE events SET id = ? WHERE id = ?`, serverID, provisionalID); err != nil {
				return err
			}
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id, target_id, payload FROM mutations WHERE state IN ('pending', 'failed')`)
		if err != nil {
			return err
		}
		type pendingRow struct {
			id      string
			target  string
			payload []byte
		}
		var updates []pendingRow
		for rows.Next() {
			var row pendingRow
			if err := rows.Scan(&row.id, &row.target, &row.payload); err != nil {
				rows.Close()
				return err
			}
			changed := false
			if row.target == provisionalID {
				row.target = serverID
				changed = true
			}
			if strings.Contains(string(row.payload), provisionalID) {
				row.payload = []byte(strings.ReplaceAll(string(row.payload), provisionalID, serverID))
				changed = true
			}
			if changed {
				updates = append(updates, row)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, row := range updates {
			if _, err := tx.ExecContext(ctx,
				`UPDATE mutations SET target_id = ?, payload = ? WHERE id = ?`,
				row.target, row.payload, row.id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertCalendar(ctx context.Context, tx *sql.Tx, calendar models.Calendar) error {
	isDefault := 0
	if calendar.IsDefault {
		isDefault = 1
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO calendars (id, name, color, is_default) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color, is_default = excluded.is_default`,
		calendar.ID, calendar.Name, calendar.Color, isDefault)
	if err != nil {
		return fmt.Errorf("upsert calendar: %w", err)
	}
	return nil
}

func upsertEvent(ctx context.Context, tx *sql.Tx, event models.Event) error {
	attendees, err := json.Marshal(event.Attendees)
	if err != nil {
		return fmt.Errorf("encode attendees: %w", err)
	}
	if event.Attendees == nil {
		attendees = []byte("[]")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, calendar_id, title, start_time, end_time, description, location, color, day, date, attendees, organizer)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET calendar_id = excluded.calendar_id, title = excluded.title,
			start_time = excluded.start_time, end_time = excluded.end_time, description = excluded.description,
			location = excluded.location, color = excluded.color, day = excluded.day, date = excluded.date,
			attendees = excluded.attendees, organizer = excluded.organizer`,
		event.ID, event.CalendarID, event.Title, event.StartTime, event.EndTime,
		event.Description, event.Location, event.Color, event.Day, event.Date,
		string(attendees), event.Organizer)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}
