package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// UserRepository captures the persistence interactions needed by signup.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// DefaultCalendarName is assigned to the calendar created at signup.
const DefaultCalendarName = "My Calendar"

// UserService handles account creation. Signup is the one place the core
// touches credentials; everything downstream works from an opaque user id.
type UserService struct {
	users       UserRepository
	calendars   CalendarRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for account operations.
func NewUserService(users UserRepository, calendars CalendarRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = CreatePasswordHash
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		calendars:   calendars,
		hash:        hash,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register creates an account together with its default calendar, satisfying
// the invariant that every user owns at least one calendar from the moment
// they exist.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	displayName := strings.TrimSpace(params.DisplayName)

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if len(params.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if displayName == "" {
		vErr.add("displayName", "display name is required")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	logger := s.loggerWith(ctx, "Register", "email", email)

	passwordHash, err := s.hash(params.Password)
	if err != nil {
		logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return User{}, err
	}

	createdAt := s.now()
	user := User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	persisted, err := s.users.CreateUser(ctx, user, passwordHash)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
		return User{}, mapRepoError(err)
	}

	if s.calendars != nil {
		_, err := s.calendars.CreateCalendar(ctx, Calendar{
			ID:        s.idGenerator(),
			UserID:    persisted.ID,
			Name:      DefaultCalendarName,
			Color:     DefaultCalendarColor,
			IsDefault: true,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to create default calendar", "error", err, "error_kind", ErrorKind(err))
			return User{}, mapRepoError(err)
		}
	}

	logger.InfoContext(ctx, "user registered", "user_id", persisted.ID)
	return persisted, nil
}
