// Package testfixtures provides deterministic clocks, id generators and
// entity builders shared by the service and repository tests.
package testfixtures

import (
	"time"

	"github.com/example/flowfly/internal/application"
	"github.com/example/flowfly/internal/persistence"
)

// ReferenceTime is the shared fixed instant tests anchor to.
func ReferenceTime() time.Time {
	return time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
}

// UserFixture captures the attributes of a test user.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserOption func(*UserFixture)

// NewUserFixture builds a user with stable defaults, customized by options.
func NewUserFixture(opts ...UserOption) UserFixture {
	fixture := UserFixture{
		ID:           "user-1",
		Email:        "taro@example.com",
		DisplayName:  "Taro Yamada",
		PasswordHash: "hashed-password",
		CreatedAt:    ReferenceTime(),
		UpdatedAt:    ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) { f.DisplayName = name }
}

func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// CalendarFixture captures the attributes of a test calendar.
type CalendarFixture struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CalendarOption func(*CalendarFixture)

func NewCalendarFixture(opts ...CalendarOption) CalendarFixture {
	fixture := CalendarFixture{
		ID:        "calendar-1",
		UserID:    "user-1",
		Name:      "My Calendar",
		Color:     application.DefaultCalendarColor,
		IsDefault: true,
		CreatedAt: ReferenceTime(),
		UpdatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithCalendarID(id string) CalendarOption {
	return func(f *CalendarFixture) { f.ID = id }
}

func WithCalendarUserID(userID string) CalendarOption {
	return func(f *CalendarFixture) { f.UserID = userID }
}

func WithCalendarName(name string) CalendarOption {
	return func(f *CalendarFixture) { f.Name = name }
}

func WithCalendarColor(color string) CalendarOption {
	return func(f *CalendarFixture) { f.Color = color }
}

func WithCalendarDefault(isDefault bool) CalendarOption {
	return func(f *CalendarFixture) { f.IsDefault = isDefault }
}

func (f CalendarFixture) Application() application.Calendar {
	return application.Calendar{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		Color:     f.Color,
		IsDefault: f.IsDefault,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (f CalendarFixture) Persistence() persistence.Calendar {
	return persistence.Calendar{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		Color:     f.Color,
		IsDefault: f.IsDefault,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// EventFixture captures the attributes of a test event.
type EventFixture struct {
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

type EventOption func(*EventFixture)

func NewEventFixture(opts ...EventOption) EventFixture {
	fixture := EventFixture{
		ID:         "event-1",
		UserID:     "user-1",
		CalendarID: "calendar-1",
		Title:      "Weekly planning",
		StartTime:  "09:00",
		EndTime:    "10:00",
		Color:      application.DefaultCalendarColor,
		Day:        1,
		Date:       time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		Organizer:  "Taro Yamada",
		CreatedAt:  ReferenceTime(),
		UpdatedAt:  ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

func WithEventCalendarID(calendarID string) EventOption {
	return func(f *EventFixture) { f.CalendarID = calendarID }
}

func WithEventUserID(userID string) EventOption {
	return func(f *EventFixture) { f.UserID = userID }
}

func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) { f.Title = title }
}

func WithEventTimes(start, end string) EventOption {
	return func(f *EventFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithEventDate sets the date and keeps the weekday slot in step with it.
func WithEventDate(date time.Time) EventOption {
	return func(f *EventFixture) {
		f.Date = date
		f.Day = int(date.Weekday())
	}
}

// WithEventDay forces the weekday slot without touching the date, mirroring
// the denormalized day column.
func WithEventDay(day int) EventOption {
	return func(f *EventFixture) { f.Day = day }
}

func WithEventAttendees(attendees ...string) EventOption {
	return func(f *EventFixture) { f.Attendees = attendees }
}

func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:          f.ID,
		UserID:      f.UserID,
		CalendarID:  f.CalendarID,
		Title:       f.Title,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Description: f.Description,
		Location:    f.Location,
		Color:       f.Color,
		Day:         f.Day,
		Date:        f.Date,
		Attendees:   f.Attendees,
		Organizer:   f.Organizer,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:          f.ID,
		UserID:      f.UserID,
		CalendarID:  f.CalendarID,
		Title:       f.Title,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Description: f.Description,
		Location:    f.Location,
		Color:       f.Color,
		Day:         f.Day,
		Date:        f.Date,
		Attendees:   f.Attendees,
		Organizer:   f.Organizer,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// NotificationFixture captures the attributes of a test notification.
type NotificationFixture struct {
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

type NotificationOption func(*NotificationFixture)

func NewNotificationFixture(opts ...NotificationOption) NotificationFixture {
	eventID := "event-1"
	fixture := NotificationFixture{
		ID:        "notification-1",
		UserID:    "user-1",
		EventID:   &eventID,
		Title:     "Event updated",
		Message:   "Weekly planning was updated",
		Timestamp: "Mar 4, 2024 09:30",
		Type:      application.NotificationTypeUpdate,
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithNotificationID(id string) NotificationOption {
	return func(f *NotificationFixture) { f.ID = id }
}

func WithNotificationUserID(userID string) NotificationOption {
	return func(f *NotificationFixture) { f.UserID = userID }
}

func WithNotificationEventID(eventID *string) NotificationOption {
	return func(f *NotificationFixture) { f.EventID = eventID }
}

func WithNotificationRead(read bool) NotificationOption {
	return func(f *NotificationFixture) { f.Read = read }
}

func WithNotificationType(kind string) NotificationOption {
	return func(f *NotificationFixture) { f.Type = kind }
}

func (f NotificationFixture) Application() application.Notification {
	return application.Notification{
		ID:        f.ID,
		UserID:    f.UserID,
		EventID:   f.EventID,
		Title:     f.Title,
		Message:   f.Message,
		Timestamp: f.Timestamp,
		Read:      f.Read,
		Type:      f.Type,
		CreatedAt: f.CreatedAt,
	}
}

func (f NotificationFixture) Persistence() persistence.Notification {
	return persistence.Notification{
		ID:        f.ID,
		UserID:    f.UserID,
		EventID:   f.EventID,
		Title:     f.Title,
		Message:   f.Message,
		Timestamp: f.Timestamp,
		Read:      f.Read,
		Type:      f.Type,
		CreatedAt: f.CreatedAt,
	}
}
