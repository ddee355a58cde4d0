// Package sync replays buffered offline mutations against the server. Replay
// is strictly FIFO on a single worker, provisional ids minted while offline
// are remapped to server ids on commit, and a connectivity monitor triggers a
// replay pass on every offline-to-online transition.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/example/flowfly/internal/client/api"
	"github.com/example/flowfly/internal/client/models"
)

// API is the slice of the server client the coordinator needs.
type API interface {
	Ping(ctx context.Context) error
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
	CreateCalendar(ctx context.Context, payload json.RawMessage) (models.Calendar, error)
	UpdateCalendar(ctx context.Context, id string, payload json.RawMessage) (models.Calendar, error)
	DeleteCalendar(ctx context.Context, id string) error
	ListEvents(ctx context.Context, query api.EventQuery) ([]models.Event, error)
	CreateEvent(ctx context.Context, payload json.RawMessage) (models.Event, error)
	UpdateEvent(ctx context.Context, id string, payload json.RawMessage) (models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Queue is the slice of the mirror store the coordinator needs.
type Queue interface {
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
	ReplaceAllCalendars(ctx context.Context, calendars []models.Calendar) error
	UpsertCalendar(ctx context.Context, calendar models.Calendar) error
	DeleteCalendar(ctx context.Context, id string) error
	ListEvents(ctx context.Context) ([]models.Event, error)
	ReplaceAllEvents(ctx context.Context, events []models.Event) error
	UpsertEvent(ctx context.Context, event models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	EnqueueMutation(ctx context.Context, record models.MutationRecord) error
	ListRetryable(ctx context.Context) ([]models.MutationRecord, error)
	ListMutations(ctx context.Context) ([]models.MutationRecord, error)
	GetMutation(ctx context.Context, id string) (models.MutationRecord, error)
	MarkMutation(ctx context.Context, id, state, lastError string) error
	ClearCommitted(ctx context.Context) error
	RemapProvisionalID(ctx context.Context, entity, provisionalID, serverID string) error
	SetPendingChanges(ctx context.Context, pending bool) error
	PendingChanges(ctx context.Context) (bool, error)
}

// Coordinator routes mutation intents to the server or the offline queue.
type Coordinator struct {
	api    API
	store  Queue
	logger *slog.Logger

	online       atomic.Bool
	pollInterval time.Duration
	newID        func() string
	now          func() time.Time

	// replayMu serializes replay passes: one worker, FIFO order.
	replayMu stdsync.Mutex
}

type Option func(*Coordinator)

func WithPollInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func WithClock(fn func() time.Time) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.now = fn
		}
	}
}

func New(apiClient API, store Queue, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		api:          apiClient,
		store:        store,
		logger:       logger,
		pollInterval: 15 * time.Second,
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Online reports the last observed connectivity state.
func (c *Coordinator) Online() bool { return c.online.Load() }

// Probe pings the server once and records the resulting state.
func (c *Coordinator) Probe(ctx context.Context) bool {
	err := c.api.Ping(ctx)
	c.online.Store(err == nil)
	return err == nil
}

// Monitor polls connectivity until ctx is done, replaying the queue on every
// offline-to-online transition. Run it on its own goroutine.
func (c *Coordinator) Monitor(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wasOnline := c.online.Load()
			if c.Probe(ctx) && !wasOnline {
				c.logger.InfoContext(ctx, "connectivity restored, replaying offline queue")
				if err := c.Replay(ctx); err != nil {
					c.logger.WarnContext(ctx, "offline replay incomplete", "error", err)
				}
			}
		}
	}
}

// CreateCalendar forwards the mutation when online and buffers it otherwise.
// The returned calendar carries a provisional id when buffered.
func (c *Coordinator) CreateCalendar(ctx context.Context, local models.Calendar, payload json.RawMessage) (models.Calendar, error) {
	if c.Online() {
		created, err := c.api.CreateCalendar(ctx, payload)
		if err == nil {
			return created, c.store.UpsertCalendar(ctx, created)
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return models.Calendar{}, err
		}
		c.online.Store(false)
	}

	local.ID = c.newID()
	if err := c.store.UpsertCalendar(ctx, local); err != nil {
		return models.Calendar{}, err
	}
	return local, c.enqueue(ctx, models.EntityCalendar, models.OpCreate, local.ID, payload)
}

func (c *Coordinator) UpdateCalendar(ctx context.Context, local models.Calendar, payload json.RawMessage) (models.Calendar, error) {
	if c.Online() {
		updated, err := c.api.UpdateCalendar(ctx, local.ID, payload)
		if err == nil {
			return updated, c.store.UpsertCalendar(ctx, updated)
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return models.Calendar{}, err
		}
		c.online.Store(false)
	}

	if err := c.store.UpsertCalendar(ctx, local); err != nil {
		return models.Calendar{}, err
	}
	return local, c.enqueue(ctx, models.EntityCalendar, models.OpUpdate, local.ID, payload)
}

func (c *Coordinator) DeleteCalendar(ctx context.Context, id string) error {
	if c.Online() {
		err := c.api.DeleteCalendar(ctx, id)
		if err == nil {
			return c.store.DeleteCalendar(ctx, id)
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return err
		}
		c.online.Store(false)
	}

	if err := c.store.DeleteCalendar(ctx, id); err != nil {
		return err
	}
	return c.enqueue(ctx, models.EntityCalendar, models.OpDelete, id, nil)
}

func (c *Coordinator) CreateEvent(ctx context.Context, local models.Event, payload json.RawMessage) (models.Event, error) {
	if c.Online() {
		created, err := c.api.CreateEvent(ctx, payload)
		if err == nil {
			return created, c.store.UpsertEvent(ctx, created)
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return models.Event{}, err
		}
		c.online.Store(false)
	}

	local.ID = c.newID()
	if err := c.store.UpsertEvent(ctx, local); err != nil {
		return models.Event{}, err
	}
	return local, c.enqueue(ctx, models.EntityEvent, models.OpCreate, local.ID, payload)
}

func (c *Coordinator) UpdateEvent(ctx context.Context, local models.Event, payload json.RawMessage) (models.Event, error) {
	if c.Online() {
		updated, err := c.api.UpdateEvent(ctx, local.ID, payload)
		if err == nil {
			return updated, c.store.UpsertEvent(ctx, updated)
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return models.Event{}, err
		}
		c.online.Store(false)
	}

	if err := c.store.UpsertEvent(ctx, local); err != nil {
		return models.Event{}, err
	}
	return local, c.enqueue(ctx, models.EntityEvent, models.OpUpdate, local.ID, payload)
}

func (c *Coordinator) DeleteEvent(ctx context.Context, id string) error {
	if c.Online() {
		err := c.api.DeleteEvent(ctx, id)
		if err == nil {
			return c.store.DeleteEvent(ctx, id)
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return err
		}
		c.online.Store(false)
	}

	if err := c.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	return c.enqueue(ctx, models.EntityEvent, models.OpDelete, id, nil)
}

func (c *Coordinator) enqueue(ctx context.Context, entity, op, targetID string, payload json.RawMessage) error {
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	return c.store.EnqueueMutation(ctx, models.MutationRecord{
		ID:        c.newID(),
		Entity:    entity,
		Op:        op,
		TargetID:  targetID,
		Payload:   payload,
		State:     models.MutationPending,
		CreatedAt: c.now(),
	})
}

// Replay drains the queue in enqueue order. A record rejected by the server
// is marked failed with its last error and does not block later records; a
// transport failure finishes the current record (as failed) and ends the
// pass, leaving the remainder pending for the next transition.
func (c *Coordinator) Replay(ctx context.Context) error {
	c.replayMu.Lock()
	defer c.replayMu.Unlock()

	records, err := c.store.ListRetryable(ctx)
	if err != nil {
		return fmt.Errorf("load offline queue: %w", err)
	}

	for _, stale := range records {
		// Re-read before applying: a create earlier in this pass may have
		// rewritten this record's target id or payload via RemapProvisionalID.
		record, err := c.store.GetMutation(ctx, stale.ID)
		if err != nil {
			return fmt.Errorf("reload mutation: %w", err)
		}
		if err := c.store.MarkMutation(ctx, record.ID, models.MutationSyncing, ""); err != nil {
			return err
		}

		err = c.apply(ctx, record)
		switch {
		case err == nil:
			if err := c.store.MarkMutation(ctx, record.ID, models.MutationCommitted, ""); err != nil {
				return err
			}
		case errors.Is(err, api.ErrUnavailable):
			c.online.Store(false)
			if markErr := c.store.MarkMutation(ctx, record.ID, models.MutationFailed, err.Error()); markErr != nil {
				return markErr
			}
			return fmt.Errorf("replay interrupted: %w", err)
		default:
			c.logger.WarnContext(ctx, "offline mutation rejected",
				"mutation_id", record.ID, "entity", record.Entity, "op", record.Op, "error", err)
			if markErr := c.store.MarkMutation(ctx, record.ID, models.MutationFailed, err.Error()); markErr != nil {
				return markErr
			}
		}
	}

	if err := c.store.ClearCommitted(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *Coordinator) apply(ctx context.Context, record models.MutationRecord) error {
	switch record.Entity {
	case models.EntityCalendar:
		switch record.Op {
		case models.OpCreate:
			created, err := c.api.CreateCalendar(ctx, record.Payload)
			if err != nil {
				return err
			}
			return c.store.RemapProvisionalID(ctx, models.EntityCalendar, record.TargetID, created.ID)
		case models.OpUpdate:
			_, err := c.api.UpdateCalendar(ctx, record.TargetID, record.Payload)
			return ignoreGone(err)
		case models.OpDelete:
			return ignoreGone(c.api.DeleteCalendar(ctx, record.TargetID))
		}
	case models.EntityEvent:
		switch record.Op {
		case models.OpCreate:
			created, err := c.api.CreateEvent(ctx, record.Payload)
			if err != nil {
				return err
			}
			return c.store.RemapProvisionalID(ctx, models.EntityEvent, record.TargetID, created.ID)
		case models.OpUpdate:
			_, err := c.api.UpdateEvent(ctx, record.TargetID, record.Payload)
			return ignoreGone(err)
		case models.OpDelete:
			return ignoreGone(c.api.DeleteEvent(ctx, record.TargetID))
		}
	}
	return fmt.Errorf("unknown mutation %s/%s", record.Entity, record.Op)
}

// ignoreGone treats a 404 as success: the target vanished server-side while
// the record waited, so there is nothing left to do.
func ignoreGone(err error) error {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// Refresh pulls fresh server snapshots into the mirror, whole collections at
// a time.
func (c *Coordinator) Refresh(ctx context.Context) error {
	calendars, err := c.api.ListCalendars(ctx)
	if err != nil {
		return err
	}
	events, err := c.api.ListEvents(ctx, api.EventQuery{})
	if err != nil {
		return err
	}
	if err := c.store.ReplaceAllCalendars(ctx, calendars); err != nil {
		return err
	}
	return c.store.ReplaceAllEvents(ctx, events)
}

// Status summarizes the queue for display.
type Status struct {
	Online    bool
	Pending   int
	Failed    int
	Mutations []models.MutationRecord
}

func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	records, err := c.store.ListMutations(ctx)
	if err != nil {
		return Status{}, err
	}
	status := Status{Online: c.Online(), Mutations: records}
	for _, record := range records {
		switch record.State {
		case models.MutationPending, models.MutationSyncing:
			status.Pending++
		case models.MutationFailed:
			status.Failed++
		}
	}
	return status, nil
}
