package persistence

import "time"

// User represents an account in the calendar domain.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
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

// Event represents a single-occurrence scheduled item stored in persistence.
// StartTime and EndTime are naive HH:MM strings; Date is the concrete calendar
// date with the time component zeroed; Day is the denormalized weekday (0 =
// Sunday) kept alongside the date for weekly-grid rendering.
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

// Notification represents a stored notification row. EventID is a weak
// reference: it may dangle after the related event is removed.
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

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
