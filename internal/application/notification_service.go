package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NotificationRepository captures the persistence interactions needed by the
// notification emitter.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)
	ListNotificationsForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotificationsForUser(ctx context.Context, userID string) error
}

// NotificationService records notification rows triggered by event mutations
// and exposes the ownership-scoped read/delete operations.
type NotificationService struct {
	notifications NotificationRepository
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewNotificationService wires dependencies for notification operations.
func NewNotificationService(notifications NotificationRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NotificationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationService{
		notifications: notifications,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// Emit persists a notification row. Callers treat this as best-effort; the
// emitter itself never validates beyond defaulting the type.
func (s *NotificationService) Emit(ctx context.Context, params EmitParams) error {
	if s == nil || s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}

	ntype := params.Type
	switch ntype {
	case NotificationTypeReminder, NotificationTypeInvitation, NotificationTypeUpdate:
	default:
		ntype = NotificationTypeUpdate
	}

	createdAt := s.now()
	notification := Notification{
		ID:        s.idGenerator(),
		UserID:    params.UserID,
		EventID:   params.RelatedEventID,
		Title:     params.Title,
		Message:   params.Message,
		Timestamp: createdAt.Format("Jan 2, 2006 15:04"),
		Type:      ntype,
		CreatedAt: createdAt,
	}

	if err := s.notifications.CreateNotification(ctx, notification); err != nil {
		s.loggerWith(ctx, "Emit", "user_id", params.UserID).ErrorContext(ctx, "failed to persist notification", "error", err)
		return mapRepoError(err)
	}
	return nil
}

// ListForUser returns the caller's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	if s == nil || s.notifications == nil {
		return nil, fmt.Errorf("notification repository not configured")
	}
	notifications, err := s.notifications.ListNotificationsForUser(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return notifications, nil
}

// MarkRead flags a single owned notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	if s == nil || s.notifications == nil {
		return Notification{}, fmt.Errorf("notification repository not configured")
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return Notification{}, err
	}
	notification, err := s.notifications.MarkNotificationRead(ctx, id)
	if err != nil {
		return Notification{}, mapRepoError(err)
	}
	return notification, nil
}

// MarkAllRead flags every notification owned by the caller as read. Calling
// it again is a no-op, not an error.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if s == nil || s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}
	if err := s.notifications.MarkAllNotificationsRead(ctx, userID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Delete removes a single owned notification.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if s == nil || s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.notifications.DeleteNotification(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// DeleteAll removes every notification owned by the caller.
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) error {
	if s == nil || s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}
	if err := s.notifications.DeleteAllNotificationsForUser(ctx, userID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, userID, id string) (Notification, error) {
	notification, err := s.notifications.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, mapRepoError(err)
	}
	if notification.UserID != userID {
		return Notification{}, ErrNotFound
	}
	return notification, nil
}
