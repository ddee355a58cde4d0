package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

// CalendarRepository implements persistence.CalendarRepository using SQLite.
type CalendarRepository struct {
	pool *ConnectionPool
}

// NewCalendarRepository creates a new SQLite calendar repository.
func NewCalendarRepository(pool *ConnectionPool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

const calendarColumns = "id, user_id, name, color, is_default, created_at, updated_at"

// CreateCalendar inserts a new calendar.
func (r *CalendarRepository) CreateCalendar(ctx context.Context, calendar persistence.Calendar) error {
	if calendar.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if calendar.CreatedAt.IsZero() {
		calendar.CreatedAt = now
	}
	calendar.UpdatedAt = now

	query := `
		INSERT INTO calendars (id, user_id, name, color, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		calendar.ID,
		calendar.UserID,
		calendar.Name,
		calendar.Color,
		boolToInt(calendar.IsDefault),
		calendar.CreatedAt.Format(time.RFC3339),
		calendar.UpdatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateCalendar rewrites the mutable fields of an existing calendar.
func (r *CalendarRepository) UpdateCalendar(ctx context.Context, calendar persistence.Calendar) error {
	query := `
		UPDATE calendars SET name = ?, color = ?, is_default = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		calendar.Name,
		calendar.Color,
		boolToInt(calendar.IsDefault),
		time.Now().UTC().Format(time.RFC3339),
		calendar.ID,
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

// GetCalendar retrieves a calendar by ID.
func (r *CalendarRepository) GetCalendar(ctx context.Context, id string) (persistence.Calendar, error) {
	if id == "" {
		return persistence.Calendar{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, "SELECT "+calendarColumns+" FROM calendars WHERE id = ?", id)
	return scanCalendar(row)
}

// ListCalendarsForUser returns all calendars owned by the user.
func (r *CalendarRepository) ListCalendarsForUser(ctx context.Context, userID string) ([]persistence.Calendar, error) {
	query := "SELECT " + calendarColumns + " FROM calendars WHERE user_id = ? ORDER BY created_at ASC, id ASC"
	rows, err := r.pool.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var calendars []persistence.Calendar
	for rows.Next() {
		calendar, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, calendar)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return calendars, nil
}

// CountCalendarsForUser counts the calendars owned by the user.
func (r *CalendarRepository) CountCalendarsForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendars WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteCalendarCascade removes the calendar and its events in one transaction.
// Notifications referencing the cascaded events are left untouched; only an
// explicit event deletion sweeps them.
func (r *CalendarRepository) DeleteCalendarCascade(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, persistence.ErrNotFound
	}

	eventsDeleted := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM events WHERE calendar_id = ?", id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		eventsDeleted = int(affected)

		result, err = tx.ExecContext(ctx, "DELETE FROM calendars WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return eventsDeleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalendar(row rowScanner) (persistence.Calendar, error) {
	var calendar persistence.Calendar
	var isDefault int
	var createdAt, updatedAt string

	err := row.Scan(
		&calendar.ID,
		&calendar.UserID,
		&calendar.Name,
		&calendar.Color,
		&isDefault,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Calendar{}, mapError(err)
	}

	calendar.IsDefault = isDefault != 0
	if calendar.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Calendar{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if calendar.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Calendar{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return calendar, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
