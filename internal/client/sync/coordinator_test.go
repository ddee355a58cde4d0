package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flowfly/internal/client/api"
	"github.com/example/flowfly/internal/client/mirror"
	"github.com/example/flowfly/internal/client/models"
)

// apiStub scripts server responses per method. Unset functions fall back to
// fixed server ids so the happy path needs no setup.
type apiStub struct {
	pingErr error

	createCalendarFn  func(payload json.RawMessage) (models.Calendar, error)
	createEventFn     func(payload json.RawMessage) (models.Event, error)
	updateCalendarErr error
	updateEventErr    error
	deleteCalendarErr error
	deleteEventErr    error

	calendars []models.Calendar
	events    []models.Event

	calendarPayloads []json.RawMessage
	eventPayloads    []json.RawMessage
	deletedCalendars []string
	deletedEvents    []string
}

func (a *apiStub) Ping(context.Context) error { return a.pingErr }

func (a *apiStub) ListCalendars(context.Context) ([]models.Calendar, error) {
	return a.calendars, nil
}

func (a *apiStub) CreateCalendar(_ context.Context, payload json.RawMessage) (models.Calendar, error) {
	a.calendarPayloads = append(a.calendarPayloads, payload)
	if a.createCalendarFn != nil {
		return a.createCalendarFn(payload)
	}
	return models.Calendar{ID: "srv-cal"}, nil
}

func (a *apiStub) UpdateCalendar(_ context.Context, id string, _ json.RawMessage) (models.Calendar, error) {
	return models.Calendar{ID: id}, a.updateCalendarErr
}

func (a *apiStub) DeleteCalendar(_ context.Context, id string) error {
	if a.deleteCalendarErr != nil {
		return a.deleteCalendarErr
	}
	a.deletedCalendars = append(a.deletedCalendars, id)
	return nil
}

func (a *apiStub) ListEvents(context.Context, api.EventQuery) ([]models.Event, error) {
	return a.events, nil
}

func (a *apiStub) CreateEvent(_ context.Context, payload json.RawMessage) (models.Event, error) {
	a.eventPayloads = append(a.eventPayloads, payload)
	if a.createEventFn != nil {
		return a.createEventFn(payload)
	}
	return models.Event{ID: "srv-event"}, nil
}

func (a *apiStub) UpdateEvent(_ context.Context, id string, _ json.RawMessage) (models.Event, error) {
	return models.Event{ID: id}, a.updateEventErr
}

func (a *apiStub) DeleteEvent(_ context.Context, id string) error {
	if a.deleteEventErr != nil {
		return a.deleteEventErr
	}
	a.deletedEvents = append(a.deletedEvents, id)
	return nil
}

func newTestCoordinator(t *testing.T, apiClient *apiStub) (*Coordinator, *mirror.Store) {
	t.Helper()

	store, err := mirror.Open(filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	counter := 0
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coordinator := New(apiClient, store, logger,
		WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		}),
		WithClock(func() time.Time {
			return time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
		}),
	)
	return coordinator, store
}

func TestCoordinator_OfflineCreateBuffersLocally(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{}
	coordinator, store := newTestCoordinator(t, apiClient)

	created, err := coordinator.CreateCalendar(ctx,
		models.Calendar{Name: "Work", Color: "#4285F4"},
		json.RawMessage(`{"name":"Work","color":"#4285F4"}`))
	require.NoError(t, err)

	// Provisional id, never sent to the server.
	assert.Equal(t, "id-1", created.ID)
	assert.Empty(t, apiClient.calendarPayloads)

	calendars, err := store.ListCalendars(ctx)
	require.NoError(t, err)
	require.Len(t, calendars, 1)
	assert.Equal(t, "id-1", calendars[0].ID)

	queue, err := store.ListRetryable(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, models.EntityCalendar, queue[0].Entity)
	assert.Equal(t, models.OpCreate, queue[0].Op)
	assert.Equal(t, "id-1", queue[0].TargetID)

	pending, err := store.PendingChanges(ctx)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestCoordinator_OnlineCreateSkipsQueue(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{}
	coordinator, store := newTestCoordinator(t, apiClient)
	require.True(t, coordinator.Probe(ctx))

	created, err := coordinator.CreateCalendar(ctx,
		models.Calendar{Name: "Work"}, json.RawMessage(`{"name":"Work"}`))
	require.NoError(t, err)
	assert.Equal(t, "srv-cal", created.ID)

	calendars, err := store.ListCalendars(ctx)
	require.NoError(t, err)
	require.Len(t, calendars, 1)
	assert.Equal(t, "srv-cal", calendars[0].ID)

	queue, err := store.ListMutations(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestCoordinator_TransportFailureFallsBackToQueue(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{
		createCalendarFn: func(json.RawMessage) (models.Calendar, error) {
			return models.Calendar{}, fmt.Errorf("%w: connection refused", api.ErrUnavailable)
		},
	}
	coordinator, store := newTestCoordinator(t, apiClient)
	require.True(t, coordinator.Probe(ctx))

	created, err := coordinator.CreateCalendar(ctx,
		models.Calendar{Name: "Work"}, json.RawMessage(`{"name":"Work"}`))
	require.NoError(t, err)

	assert.False(t, coordinator.Online())
	assert.NotEqual(t, "srv-cal", created.ID)

	queue, err := store.ListRetryable(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, created.ID, queue[0].TargetID)
}

func TestCoordinator_ServerRejectionSurfaces(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{
		createCalendarFn: func(json.RawMessage) (models.Calendar, error) {
			return models.Calendar{}, &api.RequestError{Status: http.StatusBadRequest, Message: "name is required"}
		},
	}
	coordinator, store := newTestCoordinator(t, apiClient)
	require.True(t, coordinator.Probe(ctx))

	_, err := coordinator.CreateCalendar(ctx, models.Calendar{}, json.RawMessage(`{}`))

	var reqErr *api.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.Status)

	// A rejection is not retryable, so nothing is stored or queued.
	assert.True(t, coordinator.Online())
	calendars, listErr := store.ListCalendars(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, calendars)
	queue, listErr := store.ListMutations(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, queue)
}

func TestCoordinator_ReplayRemapsProvisionalIDs(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{
		createCalendarFn: func(json.RawMessage) (models.Calendar, error) {
			return models.Calendar{ID: "cal-srv", Name: "Work"}, nil
		},
		createEventFn: func(json.RawMessage) (models.Event, error) {
			return models.Event{ID: "event-srv", CalendarID: "cal-srv"}, nil
		},
		calendars: []models.Calendar{{ID: "cal-srv", Name: "Work", Color: "#4285F4"}},
		events: []models.Event{{
			ID: "event-srv", CalendarID: "cal-srv", Title: "Weekly planning",
			StartTime: "09:00", EndTime: "10:00", Day: 1, Date: "2024-03-04",
		}},
	}
	coordinator, store := newTestCoordinator(t, apiClient)

	// Offline: create a calendar, then an event inside it. The event payload
	// references the calendar's provisional id.
	calendar, err := coordinator.CreateCalendar(ctx,
		models.Calendar{Name: "Work"}, json.RawMessage(`{"name":"Work"}`))
	require.NoError(t, err)

	eventPayload := fmt.Sprintf(`{"title":"Weekly planning","calendarId":%q}`, calendar.ID)
	_, err = coordinator.CreateEvent(ctx,
		models.Event{CalendarID: calendar.ID, Title: "Weekly planning"},
		json.RawMessage(eventPayload))
	require.NoError(t, err)

	coordinator.online.Store(true)
	require.NoError(t, coordinator.Replay(ctx))

	// The event reached the server with the server-assigned calendar id.
	require.Len(t, apiClient.eventPayloads, 1)
	assert.JSONEq(t, `{"title":"Weekly planning","calendarId":"cal-srv"}`, string(apiClient.eventPayloads[0]))

	// Mirror now holds the refreshed server snapshot.
	calendars, err := store.ListCalendars(ctx)
	require.NoError(t, err)
	require.Len(t, calendars, 1)
	assert.Equal(t, "cal-srv", calendars[0].ID)

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "event-srv", events[0].ID)

	queue, err := store.ListMutations(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	pending, err := store.PendingChanges(ctx)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestCoordinator_ReplayStopsOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{
		createCalendarFn: func(json.RawMessage) (models.Calendar, error) {
			return models.Calendar{}, fmt.Errorf("%w: connection reset", api.ErrUnavailable)
		},
	}
	coordinator, store := newTestCoordinator(t, apiClient)

	calendar, err := coordinator.CreateCalendar(ctx,
		models.Calendar{Name: "Work"}, json.RawMessage(`{"name":"Work"}`))
	require.NoError(t, err)
	require.NoError(t, coordinator.DeleteEvent(ctx, "event-9"))

	coordinator.online.Store(true)
	err = coordinator.Replay(ctx)
	require.ErrorIs(t, err, api.ErrUnavailable)
	assert.Contains(t, err.Error(), "replay interrupted")
	assert.False(t, coordinator.Online())

	// The failed record keeps its error; the later record stays pending.
	queue, err := store.ListMutations(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, calendar.ID, queue[0].TargetID)
	assert.Equal(t, models.MutationFailed, queue[0].State)
	assert.Contains(t, queue[0].LastError, "server unavailable")
	assert.Equal(t, models.MutationPending, queue[1].State)
	assert.Empty(t, apiClient.deletedEvents)
}

func TestCoordinator_ReplaySkipsRejectedRecord(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{
		createCalendarFn: func(json.RawMessage) (models.Calendar, error) {
			return models.Calendar{}, &api.RequestError{Status: http.StatusBadRequest, Message: "name is required"}
		},
	}
	coordinator, store := newTestCoordinator(t, apiClient)

	_, err := coordinator.CreateCalendar(ctx, models.Calendar{}, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.NoError(t, coordinator.DeleteEvent(ctx, "event-9"))

	coordinator.online.Store(true)
	require.NoError(t, coordinator.Replay(ctx))

	// The rejected record is parked as failed; the delete still went through.
	assert.Equal(t, []string{"event-9"}, apiClient.deletedEvents)

	queue, err := store.ListMutations(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, models.MutationFailed, queue[0].State)
	assert.Contains(t, queue[0].LastError, "name is required")

	status, err := coordinator.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, 1, status.Failed)
}

func TestCoordinator_ReplayIgnoresGoneTarget(t *testing.T) {
	ctx := context.Background()
	apiClient := &apiStub{
		deleteEventErr: &api.RequestError{Status: http.StatusNotFound, Message: "event not found"},
	}
	coordinator, store := newTestCoordinator(t, apiClient)

	require.NoError(t, coordinator.DeleteEvent(ctx, "event-9"))

	coordinator.online.Store(true)
	require.NoError(t, coordinator.Replay(ctx))

	// The target vanished server-side while queued; the record still commits.
	queue, err := store.ListMutations(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	pending, err := store.PendingChanges(ctx)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestCoordinator_Probe(t *testing.T) {
	ctx := context.Background()

	coordinator, _ := newTestCoordinator(t, &apiStub{})
	assert.False(t, coordinator.Online())
	assert.True(t, coordinator.Probe(ctx))
	assert.True(t, coordinator.Online())

	offline, _ := newTestCoordinator(t, &apiStub{pingErr: errors.New("dial tcp: connection refused")})
	assert.False(t, offline.Probe(ctx))
	assert.False(t, offline.Online())
}

func TestCoordinator_Status(t *testing.T) {
	ctx := context.Background()
	coordinator, store := newTestCoordinator(t, &apiStub{})

	_, err := coordinator.CreateCalendar(ctx,
		models.Calendar{Name: "Work"}, json.RawMessage(`{"name":"Work"}`))
	require.NoError(t, err)
	require.NoError(t, coordinator.DeleteEvent(ctx, "event-9"))

	records, err := store.ListMutations(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NoError(t, store.MarkMutation(ctx, records[1].ID, models.MutationFailed, "rejected"))

	status, err := coordinator.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, 1, status.Pending)
	assert.Equal(t, 1, status.Failed)
	assert.Len(t, status.Mutations, 2)
}
