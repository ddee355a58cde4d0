package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

// CalendarRepository captures the persistence interactions needed by the
// calendar registry.
type CalendarRepository interface {
	CreateCalendar(ctx context.Context, calendar Calendar) (Calendar, error)
	UpdateCalendar(ctx context.Context, calendar Calendar) (Calendar, error)
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendarsForUser(ctx context.Context, userID string) ([]Calendar, error)
	CountCalendarsForUser(ctx context.Context, userID string) (int, error)
	DeleteCalendarCascade(ctx context.Context, id string) (int, error)
}

// CalendarService owns the set of named, colored calendars belonging to each
// user and enforces the "at least one calendar" invariant.
type CalendarService struct {
	calendars   CalendarRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCalendarService wires dependencies for calendar operations.
func NewCalendarService(calendars CalendarRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CalendarService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		calendars:   calendars,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// Create validates and persists a new calendar. The color falls back to the
// fixed default token when omitted; names are not required to be unique.
func (s *CalendarService) Create(ctx context.Context, userID string, input CalendarInput) (Calendar, error) {
	if s == nil || s.calendars == nil {
		return Calendar{}, fmt.Errorf("calendar repository not configured")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		return Calendar{}, vErr
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = DefaultCalendarColor
	}

	createdAt := s.now()
	calendar := Calendar{
		ID:        s.idGenerator(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	persisted, err := s.calendars.CreateCalendar(ctx, calendar)
	if err != nil {
		s.loggerWith(ctx, "Create", "user_id", userID).ErrorContext(ctx, "failed to create calendar", "error", err, "error_kind", ErrorKind(err))
		return Calendar{}, mapRepoError(err)
	}

	s.loggerWith(ctx, "Create", "user_id", userID, "calendar_id", persisted.ID).InfoContext(ctx, "calendar created")
	return persisted, nil
}

// Update applies a partial update to a calendar owned by the caller. Omitted
// fields keep their previous values.
func (s *CalendarService) Update(ctx context.Context, userID, calendarID string, patch CalendarPatch) (Calendar, error) {
	if s == nil || s.calendars == nil {
		return Calendar{}, fmt.Errorf("calendar repository not configured")
	}

	existing, err := s.ownedCalendar(ctx, userID, calendarID)
	if err != nil {
		return Calendar{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			vErr := &ValidationError{}
			vErr.add("name", "name is required")
			return Calendar{}, vErr
		}
		existing.Name = name
	}
	if patch.Color != nil {
		existing.Color = strings.TrimSpace(*patch.Color)
	}
	existing.UpdatedAt = s.now()

	persisted, err := s.calendars.UpdateCalendar(ctx, existing)
	if err != nil {
		s.loggerWith(ctx, "Update", "user_id", userID, "calendar_id", calendarID).ErrorContext(ctx, "failed to update calendar", "error", err, "error_kind", ErrorKind(err))
		return Calendar{}, mapRepoError(err)
	}
	return persisted, nil
}

// Delete removes a calendar and cascades to every event referencing it. The
// last remaining calendar of a user cannot be deleted.
func (s *CalendarService) Delete(ctx context.Context, userID, calendarID string) error {
	if s == nil || s.calendars == nil {
		return fmt.Errorf("calendar repository not configured")
	}

	logger := s.loggerWith(ctx, "Delete", "user_id", userID, "calendar_id", calendarID)

	if _, err := s.ownedCalendar(ctx, userID, calendarID); err != nil {
		return err
	}

	count, err := s.calendars.CountCalendarsForUser(ctx, userID)
	if err != nil {
		return mapRepoError(err)
	}
	if count <= 1 {
		logger.WarnContext(ctx, "refused to delete only calendar")
		return fmt.Errorf("%w: cannot delete your only calendar", ErrInvariantViolation)
	}

	eventsDeleted, err := s.calendars.DeleteCalendarCascade(ctx, calendarID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete calendar", "error", err, "error_kind", ErrorKind(err))
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "calendar deleted", "events_deleted", eventsDeleted)
	return nil
}

// ListForUser returns all calendars owned by the user.
func (s *CalendarService) ListForUser(ctx context.Context, userID string) ([]Calendar, error) {
	if s == nil || s.calendars == nil {
		return nil, fmt.Errorf("calendar repository not configured")
	}
	calendars, err := s.calendars.ListCalendarsForUser(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return calendars, nil
}

// ownedCalendar loads a calendar and checks ownership. A calendar owned by a
// different user is reported as not found, never leaked.
func (s *CalendarService) ownedCalendar(ctx context.Context, userID, calendarID string) (Calendar, error) {
	calendar, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		return Calendar{}, mapRepoError(err)
	}
	if calendar.UserID != userID {
		return Calendar{}, ErrNotFound
	}
	return calendar, nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation), errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("input", "related records are missing or invalid")
		return vErr
	}
	return err
}
