package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sessionPrunerStub struct {
	pruned   int
	pruneErr error
	calls    int
}

func (s *sessionPrunerStub) PruneExpiredSessions(ctx context.Context) (int, error) {
	s.calls++
	if s.pruneErr != nil {
		return 0, s.pruneErr
	}
	return s.pruned, nil
}

type notificationSweeperStub struct {
	swept    int
	sweepErr error
	cutoff   time.Time
	calls    int
}

func (n *notificationSweeperStub) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n.calls++
	n.cutoff = cutoff
	if n.sweepErr != nil {
		return 0, n.sweepErr
	}
	return n.swept, nil
}

func TestMaintenanceService_Run(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	retention := 30 * 24 * time.Hour

	t.Run("runs both jobs with the retention cutoff", func(t *testing.T) {
		sessions := &sessionPrunerStub{pruned: 2}
		sweeper := &notificationSweeperStub{swept: 5}
		svc := NewMaintenanceService(sessions, sweeper, retention, fixedClock(now), nil)

		if err := svc.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sessions.calls != 1 || sweeper.calls != 1 {
			t.Fatalf("expected one call per job, got %d / %d", sessions.calls, sweeper.calls)
		}
		if want := now.Add(-retention); !sweeper.cutoff.Equal(want) {
			t.Fatalf("expected cutoff %v, got %v", want, sweeper.cutoff)
		}
	})

	t.Run("a failing job does not stop the other", func(t *testing.T) {
		pruneErr := errors.New("sessions table locked")
		sessions := &sessionPrunerStub{pruneErr: pruneErr}
		sweeper := &notificationSweeperStub{swept: 1}
		svc := NewMaintenanceService(sessions, sweeper, retention, fixedClock(now), nil)

		err := svc.Run(context.Background())
		if !errors.Is(err, pruneErr) {
			t.Fatalf("expected the prune error to surface, got %v", err)
		}
		if sweeper.calls != 1 {
			t.Fatalf("expected the sweep to still run")
		}
	})
}
