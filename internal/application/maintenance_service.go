package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPruner removes stale session rows.
type SessionPruner interface {
	PruneExpiredSessions(ctx context.Context) (int, error)
}

// NotificationSweeper removes swept notification rows.
type NotificationSweeper interface {
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MaintenanceService runs the periodic housekeeping jobs: pruning expired
// sessions and sweeping old read notifications. Notifications are never
// removed just because their referenced event disappeared; only age and read
// state qualify a row for the sweep.
type MaintenanceService struct {
	sessions      SessionPruner
	notifications NotificationSweeper
	retention     time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewMaintenanceService wires dependencies for the housekeeping jobs.
func NewMaintenanceService(sessions SessionPruner, notifications NotificationSweeper, retention time.Duration, now func() time.Time, logger *slog.Logger) *MaintenanceService {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &MaintenanceService{
		sessions:      sessions,
		notifications: notifications,
		retention:     retention,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// Run executes one housekeeping pass. Each job is independent; a failure in
// one does not stop the other.
func (s *MaintenanceService) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("MaintenanceService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "MaintenanceService", "Run")

	var firstErr error

	if s.sessions != nil {
		pruned, err := s.sessions.PruneExpiredSessions(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "session pruning failed", "error", err)
			firstErr = err
		} else if pruned > 0 {
			logger.InfoContext(ctx, "pruned expired sessions", "count", pruned)
		}
	}

	if s.notifications != nil {
		cutoff := s.now().Add(-s.retention)
		swept, err := s.notifications.DeleteReadNotificationsBefore(ctx, cutoff)
		if err != nil {
			logger.ErrorContext(ctx, "notification sweep failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		} else if swept > 0 {
			logger.InfoContext(ctx, "swept read notifications", "count", swept, "cutoff", cutoff)
		}
	}

	return firstErr
}
