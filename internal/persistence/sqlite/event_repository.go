package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

const dateLayout = "2006-01-02"

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = "id, user_id, calendar_id, title, start_time, end_time, description, location, color, day, date, attendees, organizer, created_at, updated_at"

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	attendees, err := encodeAttendees(event.Attendees)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (id, user_id, calendar_id, title, start_time, end_time, description, location, color, day, date, attendees, organizer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.pool.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.CalendarID,
		event.Title,
		event.StartTime,
		event.EndTime,
		event.Description,
		event.Location,
		event.Color,
		event.Day,
		event.Date.Format(dateLayout),
		attendees,
		event.Organizer,
		event.CreatedAt.Format(time.RFC3339),
		event.UpdatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateEvent rewrites an existing event.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	attendees, err := encodeAttendees(event.Attendees)
	if err != nil {
		return err
	}

	query := `
		UPDATE events
		SET calendar_id = ?, title = ?, start_time = ?, end_time = ?, description = ?, location = ?, color = ?, day = ?, date = ?, attendees = ?, organizer = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		event.CalendarID,
		event.Title,
		event.StartTime,
		event.EndTime,
		event.Description,
		event.Location,
		event.Color,
		event.Day,
		event.Date.Format(dateLayout),
		attendees,
		event.Organizer,
		time.Now().UTC().Format(time.RFC3339),
		event.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	return scanEvent(row)
}

// ListEvents lists events matching the filter ordered by date then start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := buildEventListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// DeleteEventWithNotifications removes the event and sweeps the notifications
// referencing it, in one transaction.
func (r *EventRepository) DeleteEventWithNotifications(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE event_id = ?", id); err != nil {
			return mapError(err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func buildEventListQuery(filter persistence.EventFilter) (string, []any) {
	query := "SELECT " + eventColumns + " FROM events"

	var conditions []string
	var args []any

	if len(filter.CalendarIDs) > 0 {
		placeholders := make([]string, len(filter.CalendarIDs))
		for i, id := range filter.CalendarIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("calendar_id IN (%s)", strings.Join(placeholders, ",")))
	}

	// The weekday filter intentionally stands alone: events recorded against
	// a weekday slot match regardless of their concrete date.
	switch {
	case filter.Day != nil:
		conditions = append(conditions, "day = ?")
		args = append(args, *filter.Day)
	case filter.Date != nil:
		conditions = append(conditions, "date = ?")
		args = append(args, filter.Date.Format(dateLayout))
	case filter.Year != 0 && filter.Month != 0:
		first := time.Date(filter.Year, filter.Month, 1, 0, 0, 0, 0, time.UTC)
		conditions = append(conditions, "date >= ? AND date < ?")
		args = append(args, first.Format(dateLayout), first.AddDate(0, 1, 0).Format(dateLayout))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC, id ASC"
	return query, args
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var dateStr, attendees, createdAt, updatedAt string

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.CalendarID,
		&event.Title,
		&event.StartTime,
		&event.EndTime,
		&event.Description,
		&event.Location,
		&event.Color,
		&event.Day,
		&dateStr,
		&attendees,
		&event.Organizer,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}

	if event.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if event.Attendees, err = decodeAttendees(attendees); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}

func encodeAttendees(attendees []string) (string, error) {
	if attendees == nil {
		attendees = []string{}
	}
	data, err := json.Marshal(attendees)
	if err != nil {
		return "", fmt.Errorf("failed to encode attendees: %w", err)
	}
	return string(data), nil
}

func decodeAttendees(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var attendees []string
	if err := json.Unmarshal([]byte(raw), &attendees); err != nil {
		return nil, fmt.Errorf("failed to decode attendees: %w", err)
	}
	if len(attendees) == 0 {
		return nil, nil
	}
	return attendees, nil
}
