package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/flowfly/internal/persistence"
	"github.com/example/flowfly/internal/testfixtures"
)

func seedUser(t *testing.T, harness *testfixtures.SQLiteHarness) persistence.User {
	t.Helper()
	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedCalendar(t *testing.T, harness *testfixtures.SQLiteHarness, opts ...testfixtures.CalendarOption) persistence.Calendar {
	t.Helper()
	calendar := testfixtures.NewCalendarFixture(opts...).Persistence()
	if err := harness.Calendars.CreateCalendar(context.Background(), calendar); err != nil {
		t.Fatalf("failed to seed calendar: %v", err)
	}
	return calendar
}

func TestCalendarRepository_CreateCalendar(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	seedUser(t, harness)

	calendar := testfixtures.NewCalendarFixture().Persistence()
	if err := harness.Calendars.CreateCalendar(ctx, calendar); err != nil {
		t.Fatalf("CreateCalendar failed: %v", err)
	}

	retrieved, err := harness.Calendars.GetCalendar(ctx, calendar.ID)
	if err != nil {
		t.Fatalf("GetCalendar failed: %v", err)
	}
	if retrieved.Name != calendar.Name {
		t.Errorf("expected name %q, got %q", calendar.Name, retrieved.Name)
	}
	if retrieved.Color != calendar.Color {
		t.Errorf("expected color %q, got %q", calendar.Color, retrieved.Color)
	}
	if !retrieved.IsDefault {
		t.Errorf("expected the default flag to round-trip")
	}
}

func TestCalendarRepository_CreateCalendar_UnknownUser(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	calendar := testfixtures.NewCalendarFixture(testfixtures.WithCalendarUserID("missing")).Persistence()
	err := harness.Calendars.CreateCalendar(context.Background(), calendar)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestCalendarRepository_UpdateCalendar(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	seedUser(t, harness)
	calendar := seedCalendar(t, harness)

	calendar.Name = "Work"
	calendar.Color = "#FF0000"
	if err := harness.Calendars.UpdateCalendar(ctx, calendar); err != nil {
		t.Fatalf("UpdateCalendar failed: %v", err)
	}

	retrieved, err := harness.Calendars.GetCalendar(ctx, calendar.ID)
	if err != nil {
		t.Fatalf("GetCalendar failed: %v", err)
	}
	if retrieved.Name != "Work" || retrieved.Color != "#FF0000" {
		t.Errorf("expected updated fields, got %q / %q", retrieved.Name, retrieved.Color)
	}
}

func TestCalendarRepository_CountCalendarsForUser(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	user := seedUser(t, harness)
	seedCalendar(t, harness)
	seedCalendar(t, harness, testfixtures.WithCalendarID("calendar-2"), testfixtures.WithCalendarName("Work"))

	count, err := harness.Calendars.CountCalendarsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountCalendarsForUser failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 calendars, got %d", count)
	}

	count, err = harness.Calendars.CountCalendarsForUser(ctx, "other")
	if err != nil {
		t.Fatalf("CountCalendarsForUser failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 calendars for a stranger, got %d", count)
	}
}

func TestCalendarRepository_ListCalendarsForUser(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	user := seedUser(t, harness)
	seedCalendar(t, harness)
	seedCalendar(t, harness, testfixtures.WithCalendarID("calendar-2"), testfixtures.WithCalendarName("Work"))

	calendars, err := harness.Calendars.ListCalendarsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListCalendarsForUser failed: %v", err)
	}
	if len(calendars) != 2 {
		t.Fatalf("expected 2 calendars, got %d", len(calendars))
	}
}

func TestCalendarRepository_DeleteCalendarCascade(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	seedUser(t, harness)
	calendar := seedCalendar(t, harness)

	for _, id := range []string{"event-1", "event-2"} {
		event := testfixtures.NewEventFixture(testfixtures.WithEventID(id)).Persistence()
		if err := harness.Events.CreateEvent(ctx, event); err != nil {
			t.Fatalf("failed to seed event %s: %v", id, err)
		}
	}

	eventID := "event-1"
	notification := testfixtures.NewNotificationFixture(testfixtures.WithNotificationEventID(&eventID)).Persistence()
	if err := harness.Notifications.CreateNotification(ctx, notification); err != nil {
		t.Fatalf("failed to seed notification: %v", err)
	}

	deleted, err := harness.Calendars.DeleteCalendarCascade(ctx, calendar.ID)
	if err != nil {
		t.Fatalf("DeleteCalendarCascade failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 cascaded events, got %d", deleted)
	}

	if _, err := harness.Calendars.GetCalendar(ctx, calendar.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected the calendar to be gone, got %v", err)
	}
	if _, err := harness.Events.GetEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected event-1 to be gone, got %v", err)
	}

	// The cascade leaves notification rows behind; their event reference
	// simply dangles.
	remaining, err := harness.Notifications.GetNotification(ctx, notification.ID)
	if err != nil {
		t.Fatalf("expected the notification to survive the cascade, got %v", err)
	}
	if remaining.EventID == nil || *remaining.EventID != "event-1" {
		t.Errorf("expected the dangling event reference to be preserved, got %v", remaining.EventID)
	}
}

func TestCalendarRepository_DeleteCalendarCascade_NotFound(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	_, err := harness.Calendars.DeleteCalendarCascade(context.Background(), "missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
