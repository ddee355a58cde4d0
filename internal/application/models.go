package application

import "time"

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Calendar represents a named, colored container of events owned by one user.
type Calendar struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultCalendarColor is assigned when a calendar is created without a color.
const DefaultCalendarColor = "#4A90D9"

// CalendarInput captures caller provided calendar fields for creation.
type CalendarInput struct {
	Name  string
	Color string
}

// CalendarPatch captures partial calendar updates; nil fields stay unchanged.
type CalendarPatch struct {
	Name  *string
	Color *string
}

// Event represents a single-occurrence scheduled item. StartTime and EndTime
// are naive HH:MM strings; Day is the weekday slot (0 = Sunday) recorded
// alongside the concrete Date.
type Event struct {
	ID          string
	UserID      string
	CalendarID  string
	Title       string
	StartTime   string
	EndTime     string
	Description string
	Location    string
	Color       string
	Day         int
	Date        time.Time
	Attendees   []string
	Organizer   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventInput captures caller provided event fields for creation. Day is a
// pointer so that a missing value can be told apart from Sunday.
type EventInput struct {
	Title       string
	StartTime   string
	EndTime     string
	Description string
	Location    string
	Color       string
	Day         *int
	Date        string
	CalendarID  string
	Attendees   []string
	Organizer   string
}

// EventPatch captures partial event updates; nil fields stay unchanged.
type EventPatch struct {
	Title       *string
	StartTime   *string
	EndTime     *string
	Description *string
	Location    *string
	Color       *string
	Day         *int
	Date        *string
	CalendarID  *string
	Attendees   []string
	Organizer   *string
}

// EventListFilter narrows event listings. Day filters by weekday slot alone;
// Date filters by exact date; Year+Month filter by calendar month. Day wins
// over Date, which wins over the month window.
type EventListFilter struct {
	Year  int
	Month time.Month
	Day   *int
	Date  *time.Time
}

// Notification kinds understood by clients.
const (
	NotificationTypeReminder   = "reminder"
	NotificationTypeInvitation = "invitation"
	NotificationTypeUpdate     = "update"
)

// Notification represents a stored notification. EventID is a weak reference
// that may dangle once the related event is removed.
type Notification struct {
	ID        string
	UserID    string
	EventID   *string
	Title     string
	Message   string
	Timestamp string
	Read      bool
	Type      string
	CreatedAt time.Time
}

// EmitParams wraps the data required to record a notification.
type EmitParams struct {
	UserID         string
	Title          string
	Message        string
	Type           string
	RelatedEventID *string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
