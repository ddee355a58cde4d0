package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/flowfly/internal/persistence"
	"github.com/example/flowfly/internal/testfixtures"
)

func seedSession(t *testing.T, harness *testfixtures.SQLiteHarness, session persistence.Session) persistence.Session {
	t.Helper()
	created, err := harness.Sessions.CreateSession(context.Background(), session)
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return created
}

func activeSession(token string) persistence.Session {
	return persistence.Session{
		ID:        "session-" + token,
		UserID:    "user-1",
		Token:     token,
		ExpiresAt: testfixtures.ReferenceTime().Add(24 * time.Hour),
		CreatedAt: testfixtures.ReferenceTime(),
	}
}

func TestSessionRepository_CreateSession(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	seedUser(t, harness)

	session := seedSession(t, harness, activeSession("token-1"))

	retrieved, err := harness.Sessions.GetSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved.UserID != session.UserID {
		t.Errorf("expected user %q, got %q", session.UserID, retrieved.UserID)
	}
	if !retrieved.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("expected expiry %v, got %v", session.ExpiresAt, retrieved.ExpiresAt)
	}
	if retrieved.RevokedAt != nil {
		t.Errorf("expected a fresh session to carry no revocation")
	}
}

func TestSessionRepository_CreateSession_DuplicateToken(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	seedUser(t, harness)
	seedSession(t, harness, activeSession("token-1"))

	duplicate := activeSession("token-1")
	duplicate.ID = "session-other"
	_, err := harness.Sessions.CreateSession(context.Background(), duplicate)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a reused token, got %v", err)
	}
}

func TestSessionRepository_GetSession_NotFound(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	_, err := harness.Sessions.GetSession(context.Background(), "missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_RevokeSession(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	seedUser(t, harness)
	seedSession(t, harness, activeSession("token-1"))

	revokedAt := harness.Clock.Advance(time.Hour)
	revoked, err := harness.Sessions.RevokeSession(ctx, "token-1", revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revocation at %v, got %v", revokedAt, revoked.RevokedAt)
	}

	if _, err := harness.Sessions.RevokeSession(ctx, "missing", revokedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	seedUser(t, harness)

	expired := activeSession("token-expired")
	expired.ExpiresAt = testfixtures.ReferenceTime().Add(-time.Hour)
	seedSession(t, harness, expired)

	seedSession(t, harness, activeSession("token-active"))

	seedSession(t, harness, activeSession("token-revoked"))
	if _, err := harness.Sessions.RevokeSession(ctx, "token-revoked", testfixtures.ReferenceTime()); err != nil {
		t.Fatalf("failed to revoke fixture session: %v", err)
	}

	deleted, err := harness.Sessions.DeleteExpiredSessions(ctx, harness.Clock.Advance(30*time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected the expired and revoked sessions to go, got %d", deleted)
	}

	if _, err := harness.Sessions.GetSession(ctx, "token-active"); err != nil {
		t.Fatalf("expected the active session to survive, got %v", err)
	}
	if _, err := harness.Sessions.GetSession(ctx, "token-expired"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected the expired session to be gone, got %v", err)
	}
}
