package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/flowfly/internal/persistence"
	"github.com/example/flowfly/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// storage instance for integration-style persistence tests.
type SQLiteHarness struct {
	Users         persistence.UserRepository
	Calendars     persistence.CalendarRepository
	Events        persistence.EventRepository
	Notifications persistence.NotificationRepository
	Sessions      persistence.SessionRepository

	// Clock and IDs give tests deterministic timestamps and row ids beyond
	// the canned fixtures.
	Clock *Clock
	IDs   *IDGenerator

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. A cleanup callback is registered with the provided
// testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "flowfly.db")

	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Users:         sqlite.NewUserRepository(storage),
		Calendars:     sqlite.NewCalendarRepository(storage),
		Events:        sqlite.NewEventRepository(storage),
		Notifications: sqlite.NewNotificationRepository(storage),
		Sessions:      sqlite.NewSessionRepository(storage),
		Clock:         NewClock(time.Time{}),
		IDs:           NewIDGenerator("row"),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
