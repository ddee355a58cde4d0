package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes the credential lookups required by authentication.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService issues and validates the opaque bearer tokens consumed by the
// HTTP middleware. The calendar core itself never sees credentials; it only
// receives the user id this service resolves.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: VerifyPassword,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (AuthenticateResult, error) {
	if s == nil || s.credentials == nil || s.sessions == nil {
		return AuthenticateResult{}, fmt.Errorf("auth service not configured")
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Authenticate", "email", email)

	if email == "" || params.Password == "" {
		return AuthenticateResult{}, ErrInvalidCredentials
	}

	creds, err := s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return AuthenticateResult{}, ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "credential lookup failed", "error", err)
		return AuthenticateResult{}, err
	}

	if err := s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		logger.WarnContext(ctx, "password verification failed")
		return AuthenticateResult{}, ErrInvalidCredentials
	}

	issuedAt := s.now()
	session := Session{
		ID:        s.tokenGenerator(),
		UserID:    creds.User.ID,
		Token:     s.tokenGenerator(),
		ExpiresAt: issuedAt.Add(s.sessionTTL),
		CreatedAt: issuedAt,
	}

	persisted, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		logger.ErrorContext(ctx, "failed to persist session", "error", err)
		return AuthenticateResult{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "authentication succeeded", "user_id", creds.User.ID)
	return AuthenticateResult{User: creds.User, Session: persisted}, nil
}

// ValidateSession resolves a bearer token to a principal, rejecting revoked
// and expired sessions.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("session repository not configured")
	}
	if strings.TrimSpace(token) == "" {
		return Principal{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return Principal{}, mapRepoError(err)
	}
	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(s.now()) {
		return Principal{}, ErrSessionExpired
	}
	return Principal{UserID: session.UserID}, nil
}

// RevokeSession invalidates a bearer token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	if strings.TrimSpace(token) == "" {
		return ErrInvalidCredentials
	}
	if _, err := s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		s.loggerWith(ctx, "RevokeSession").ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return mapRepoError(err)
	}
	return nil
}

// PruneExpiredSessions removes sessions past their TTL or revocation.
func (s *AuthService) PruneExpiredSessions(ctx context.Context) (int, error) {
	if s == nil || s.sessions == nil {
		return 0, fmt.Errorf("session repository not configured")
	}
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}
