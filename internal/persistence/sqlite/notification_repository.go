package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository using SQLite.
type NotificationRepository struct {
	pool *ConnectionPool
}

// NewNotificationRepository creates a new SQLite notification repository.
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = "id, user_id, event_id, title, message, timestamp, read, type, created_at"

// CreateNotification inserts a new notification row.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	if notification.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	var eventID sql.NullString
	if notification.EventID != nil {
		eventID = sql.NullString{String: *notification.EventID, Valid: true}
	}

	query := `
		INSERT INTO notifications (id, user_id, event_id, title, message, timestamp, read, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		eventID,
		notification.Title,
		notification.Message,
		notification.Timestamp,
		boolToInt(notification.Read),
		notification.Type,
		notification.CreatedAt.Format(time.RFC3339),
	)
	return mapError(err)
}

// GetNotification retrieves a notification by ID.
func (r *NotificationRepository) GetNotification(ctx context.Context, id string) (persistence.Notification, error) {
	if id == "" {
		return persistence.Notification{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	return scanNotification(row)
}

// ListNotificationsForUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListNotificationsForUser(ctx context.Context, userID string) ([]persistence.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id ASC"
	rows, err := r.pool.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var notifications []persistence.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a single notification as read.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id string) (persistence.Notification, error) {
	result, err := r.pool.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return persistence.Notification{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Notification{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.Notification{}, persistence.ErrNotFound
	}
	return r.GetNotification(ctx, id)
}

// MarkAllNotificationsRead flags every notification owned by the user as read.
// Re-running against already-read rows is a no-op.
func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := r.pool.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE user_id = ?", userID)
	return mapError(err)
}

// DeleteNotification removes a single notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
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

// DeleteAllNotificationsForUser removes every notification owned by the user.
func (r *NotificationRepository) DeleteAllNotificationsForUser(ctx context.Context, userID string) error {
	_, err := r.pool.db.ExecContext(ctx, "DELETE FROM notifications WHERE user_id = ?", userID)
	return mapError(err)
}

// DeleteReadNotificationsBefore sweeps read rows created before the cutoff.
func (r *NotificationRepository) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE read = 1 AND created_at < ?",
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

func scanNotification(row rowScanner) (persistence.Notification, error) {
	var notification persistence.Notification
	var eventID sql.NullString
	var read int
	var createdAt string

	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&eventID,
		&notification.Title,
		&notification.Message,
		&notification.Timestamp,
		&read,
		&notification.Type,
		&createdAt,
	)
	if err != nil {
		return persistence.Notification{}, mapError(err)
	}

	if eventID.Valid {
		notification.EventID = &eventID.String
	}
	notification.Read = read != 0
	if notification.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Notification{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return notification, nil
}
