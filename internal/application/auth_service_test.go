package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

type credentialStoreStub struct {
	credentials UserCredentials
	lookupErr   error
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.lookupErr != nil {
		return UserCredentials{}, c.lookupErr
	}
	if c.credentials.User.ID == "" {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, persistence.ErrNotFound
}

type sessionRepoStub struct {
	createErr error
	created   Session

	getSession Session
	getErr     error

	revokeErr error
	revokedID string

	pruned   int
	pruneErr error
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.created = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	if s.getSession.Token != token {
		return Session{}, persistence.ErrNotFound
	}
	return s.getSession, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	s.revokedID = token
	session := s.getSession
	session.RevokedAt = &revokedAt
	return session, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error) {
	if s.pruneErr != nil {
		return 0, s.pruneErr
	}
	return s.pruned, nil
}

func TestAuthService_Authenticate(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	hash, err := CreatePasswordHash("open sesame")
	if err != nil {
		t.Fatalf("failed to hash fixture password: %v", err)
	}
	creds := UserCredentials{
		User:         User{ID: "user-1", Email: "taro@example.com", DisplayName: "Taro Yamada"},
		PasswordHash: hash,
	}

	t.Run("issues a session for valid credentials", func(t *testing.T) {
		sessions := &sessionRepoStub{}
		svc := NewAuthService(&credentialStoreStub{credentials: creds}, sessions, sequentialIDs("tok"), fixedClock(now), time.Hour, nil)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "Taro@Example.com ", Password: "open sesame"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.User.ID != "user-1" {
			t.Fatalf("expected user-1, got %q", result.User.ID)
		}
		if result.Session.Token == "" {
			t.Fatalf("expected a token to be issued")
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour out, got %v", result.Session.ExpiresAt)
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		svc := NewAuthService(&credentialStoreStub{credentials: creds}, &sessionRepoStub{}, sequentialIDs("tok"), fixedClock(now), time.Hour, nil)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "taro@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("masks an unknown email as invalid credentials", func(t *testing.T) {
		svc := NewAuthService(&credentialStoreStub{}, &sessionRepoStub{}, sequentialIDs("tok"), fixedClock(now), time.Hour, nil)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "nobody@example.com", Password: "open sesame"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects blank input without a lookup", func(t *testing.T) {
		svc := NewAuthService(&credentialStoreStub{credentials: creds}, &sessionRepoStub{}, sequentialIDs("tok"), fixedClock(now), time.Hour, nil)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	active := Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Token:     "token-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now.Add(-time.Hour),
	}

	t.Run("resolves an active session to its principal", func(t *testing.T) {
		sessions := &sessionRepoStub{getSession: active}
		svc := NewAuthService(nil, sessions, nil, fixedClock(now), time.Hour, nil)

		principal, err := svc.ValidateSession(context.Background(), "token-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.UserID != "user-1" {
			t.Fatalf("expected user-1, got %q", principal.UserID)
		}
	})

	t.Run("rejects an expired session", func(t *testing.T) {
		expired := active
		expired.ExpiresAt = now.Add(-time.Minute)
		svc := NewAuthService(nil, &sessionRepoStub{getSession: expired}, nil, fixedClock(now), time.Hour, nil)

		_, err := svc.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects a revoked session", func(t *testing.T) {
		revokedAt := now.Add(-time.Minute)
		revoked := active
		revoked.RevokedAt = &revokedAt
		svc := NewAuthService(nil, &sessionRepoStub{getSession: revoked}, nil, fixedClock(now), time.Hour, nil)

		_, err := svc.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		svc := NewAuthService(nil, &sessionRepoStub{getSession: active}, nil, fixedClock(now), time.Hour, nil)

		_, err := svc.ValidateSession(context.Background(), "token-2")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	sessions := &sessionRepoStub{getSession: Session{Token: "token-1"}}
	svc := NewAuthService(nil, sessions, nil, fixedClock(now), time.Hour, nil)

	if err := svc.RevokeSession(context.Background(), "token-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions.revokedID != "token-1" {
		t.Fatalf("expected token-1 to be revoked, got %q", sessions.revokedID)
	}
}

func TestAuthService_PruneExpiredSessions(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	sessions := &sessionRepoStub{pruned: 4}
	svc := NewAuthService(nil, sessions, nil, fixedClock(now), time.Hour, nil)

	pruned, err := svc.PruneExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pruned != 4 {
		t.Fatalf("expected 4 pruned sessions, got %d", pruned)
	}
}
