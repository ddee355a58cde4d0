package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// CalendarRepository stores the named calendars owned by users.
type CalendarRepository interface {
	CreateCalendar(ctx context.Context, calendar Calendar) error
	UpdateCalendar(ctx context.Context, calendar Calendar) error
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendarsForUser(ctx context.Context, userID string) ([]Calendar, error)
	CountCalendarsForUser(ctx context.Context, userID string) (int, error)
	// DeleteCalendarCascade removes the calendar and every event referencing
	// it inside a single transaction. Notifications pointing at the cascaded
	// events are deliberately left in place.
	DeleteCalendarCascade(ctx context.Context, id string) (eventsDeleted int, err error)
}

// EventFilter narrows event queries. When Day is set the weekday filter alone
// applies; otherwise Date, then the Year/Month window, takes effect.
type EventFilter struct {
	CalendarIDs []string
	Year        int
	Month       time.Month
	Day         *int
	Date        *time.Time
}

// EventRepository stores events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	// DeleteEventWithNotifications removes the event and every notification
	// whose weak reference points at it, in one transaction.
	DeleteEventWithNotifications(ctx context.Context, id string) error
}

// NotificationRepository stores notification rows.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)
	ListNotificationsForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotificationsForUser(ctx context.Context, userID string) error
	// DeleteReadNotificationsBefore sweeps read rows older than the cutoff.
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error)
}
