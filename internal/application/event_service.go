package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/flowfly/internal/timeslot"
)

// eventDateLayout is the concrete calendar date format accepted on input.
const eventDateLayout = "2006-01-02"

// EventRepository captures the persistence interactions needed by the event store.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, calendarIDs []string, filter EventListFilter) ([]Event, error)
	// DeleteEventWithNotifications removes the event and sweeps notifications
	// referencing it.
	DeleteEventWithNotifications(ctx context.Context, id string) error
}

// CalendarReader resolves calendars for ownership checks and color defaults.
type CalendarReader interface {
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendarsForUser(ctx context.Context, userID string) ([]Calendar, error)
}

// UserDirectory resolves user display names for organizer defaulting.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// NotificationEmitter records notification side effects of event mutations.
type NotificationEmitter interface {
	Emit(ctx context.Context, params EmitParams) error
}

// EventService owns events and enforces field validation and calendar
// ownership before every mutation.
type EventService struct {
	events      EventRepository
	calendars   CalendarReader
	users       UserDirectory
	notifier    NotificationEmitter
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, calendars CalendarReader, users UserDirectory, notifier NotificationEmitter, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		calendars:   calendars,
		users:       users,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// Create validates the input, checks calendar ownership, applies defaults and
// persists a new event. A notification recording the creation is emitted
// best-effort afterwards.
func (s *EventService) Create(ctx context.Context, userID string, input EventInput) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "Create", "user_id", userID)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.StartTime == "" {
		vErr.add("startTime", "startTime is required")
	}
	if input.EndTime == "" {
		vErr.add("endTime", "endTime is required")
	}
	if input.Day == nil {
		vErr.add("day", "day is required")
	}
	if input.Date == "" {
		vErr.add("date", "date is required")
	}
	if input.CalendarID == "" {
		vErr.add("calendarId", "calendarId is required")
	}
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	if err := timeslot.ValidateOrdering(input.StartTime, input.EndTime); err != nil {
		vErr.add("time", err.Error())
	}
	if *input.Day < 0 || *input.Day > 6 {
		vErr.add("day", "day must be between 0 and 6")
	}
	date, err := time.Parse(eventDateLayout, input.Date)
	if err != nil {
		vErr.add("date", fmt.Sprintf("date %q is not a valid YYYY-MM-DD value", input.Date))
	}
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	calendar, err := s.ownedCalendar(ctx, userID, input.CalendarID)
	if err != nil {
		return Event{}, err
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = calendar.Color
	}

	organizer := strings.TrimSpace(input.Organizer)
	if organizer == "" {
		organizer = s.creatorName(ctx, userID)
	}

	createdAt := s.now()
	event := Event{
		ID:          s.idGenerator(),
		UserID:      userID,
		CalendarID:  calendar.ID,
		Title:       strings.TrimSpace(input.Title),
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Description: input.Description,
		Location:    input.Location,
		Color:       color,
		Day:         *input.Day,
		Date:        date,
		Attendees:   append([]string(nil), input.Attendees...),
		Organizer:   organizer,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	persisted, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
		return Event{}, mapRepoError(err)
	}

	s.emit(ctx, userID, "Event created", fmt.Sprintf("%q was added to your calendar", persisted.Title), persisted.ID)
	logger.InfoContext(ctx, "event created", "event_id", persisted.ID, "calendar_id", persisted.CalendarID)
	return persisted, nil
}

// Update applies a merge-patch to an existing event: unset fields retain their
// previous values. Ownership is re-resolved through the incoming calendar id
// when present, otherwise through the event's existing calendar.
func (s *EventService) Update(ctx context.Context, userID, eventID string, patch EventPatch) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "Update", "user_id", userID, "event_id", eventID)

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapRepoError(err)
	}

	calendarID := existing.CalendarID
	if patch.CalendarID != nil {
		calendarID = *patch.CalendarID
	}
	if _, err := s.ownedCalendar(ctx, userID, calendarID); err != nil {
		return Event{}, err
	}

	vErr := &ValidationError{}
	updated := existing
	updated.CalendarID = calendarID

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			vErr.add("title", "title is required")
		}
		updated.Title = title
	}
	if patch.StartTime != nil {
		updated.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		updated.EndTime = *patch.EndTime
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		if err := timeslot.ValidateOrdering(updated.StartTime, updated.EndTime); err != nil {
			vErr.add("time", err.Error())
		}
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Location != nil {
		updated.Location = *patch.Location
	}
	if patch.Color != nil {
		updated.Color = *patch.Color
	}
	if patch.Day != nil {
		if *patch.Day < 0 || *patch.Day > 6 {
			vErr.add("day", "day must be between 0 and 6")
		}
		updated.Day = *patch.Day
	}
	if patch.Date != nil {
		date, err := time.Parse(eventDateLayout, *patch.Date)
		if err != nil {
			vErr.add("date", fmt.Sprintf("date %q is not a valid YYYY-MM-DD value", *patch.Date))
		}
		updated.Date = date
	}
	if patch.Attendees != nil {
		updated.Attendees = append([]string(nil), patch.Attendees...)
	}
	if patch.Organizer != nil {
		updated.Organizer = *patch.Organizer
	}
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	updated.UpdatedAt = s.now()

	persisted, err := s.events.UpdateEvent(ctx, updated)
	if err != nil {
		logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
		return Event{}, mapRepoError(err)
	}

	s.emit(ctx, userID, "Event updated", fmt.Sprintf("%q was updated", persisted.Title), persisted.ID)
	return persisted, nil
}

// Delete removes an event owned by the caller. Notifications whose weak
// reference points at the event are swept with it; calendar-cascade deletes
// do not pass through here and leave their notifications in place.
func (s *EventService) Delete(ctx context.Context, userID, eventID string) error {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "Delete", "user_id", userID, "event_id", eventID)

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapRepoError(err)
	}

	calendar, err := s.calendars.GetCalendar(ctx, existing.CalendarID)
	if err != nil {
		return mapRepoError(err)
	}
	if calendar.UserID != userID {
		logger.WarnContext(ctx, "refused event delete for non-owner")
		return ErrPermissionDenied
	}

	if err := s.events.DeleteEventWithNotifications(ctx, eventID); err != nil {
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// ListForUser returns events belonging to the caller's calendars, narrowed by
// the filter. A weekday filter matches events recorded against that weekday
// slot regardless of their concrete date; clients wanting a single concrete
// day should filter by Date instead.
func (s *EventService) ListForUser(ctx context.Context, userID string, filter EventListFilter) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	calendars, err := s.calendars.ListCalendarsForUser(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if len(calendars) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(calendars))
	for _, calendar := range calendars {
		ids = append(ids, calendar.ID)
	}

	events, err := s.events.ListEvents(ctx, ids, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return events, nil
}

func (s *EventService) ownedCalendar(ctx context.Context, userID, calendarID string) (Calendar, error) {
	if s.calendars == nil {
		return Calendar{}, fmt.Errorf("calendar reader not configured")
	}
	calendar, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		return Calendar{}, mapRepoError(err)
	}
	if calendar.UserID != userID {
		return Calendar{}, ErrNotFound
	}
	return calendar, nil
}

func (s *EventService) creatorName(ctx context.Context, userID string) string {
	if s.users == nil {
		return ""
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.DisplayName
}

// emit records a notification as a fire-and-forget side effect. Failures are
// logged and swallowed: the primary mutation has already committed and must
// not be rolled back or reported as failed.
func (s *EventService) emit(ctx context.Context, userID, title, message, eventID string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Emit(ctx, EmitParams{
		UserID:         userID,
		Title:          title,
		Message:        message,
		Type:           NotificationTypeUpdate,
		RelatedEventID: &eventID,
	})
	if err != nil {
		s.loggerWith(ctx, "emit", "user_id", userID, "event_id", eventID).
			WarnContext(ctx, "notification emission failed", "error", err)
	}
}
