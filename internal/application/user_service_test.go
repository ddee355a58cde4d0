package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

type userRepoStub struct {
	createErr error
	created   User
	hash      string

	getUser User
	getErr  error
}

func (u *userRepoStub) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	if u.createErr != nil {
		return User{}, u.createErr
	}
	u.created = user
	u.hash = passwordHash
	return user, nil
}

func (u *userRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	if u.getErr != nil {
		return User{}, u.getErr
	}
	if u.getUser.ID == "" {
		return User{}, persistence.ErrNotFound
	}
	return u.getUser, nil
}

func stubHasher(password string) (string, error) {
	return "hash:" + password, nil
}

func TestUserService_Register(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	valid := RegisterParams{
		Email:       "Taro@Example.com",
		Password:    "open sesame",
		DisplayName: "Taro Yamada",
	}

	t.Run("collects every validation failure at once", func(t *testing.T) {
		svc := NewUserService(&userRepoStub{}, &calendarRepoStub{}, stubHasher, sequentialIDs("id"), fixedClock(now), nil)

		_, err := svc.Register(context.Background(), RegisterParams{Password: "short"})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"email", "password", "displayName"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected a field error for %q, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		svc := NewUserService(&userRepoStub{}, &calendarRepoStub{}, stubHasher, sequentialIDs("id"), fixedClock(now), nil)

		params := valid
		params.Email = "not-an-address"
		_, err := svc.Register(context.Background(), params)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["email"]; !ok {
			t.Fatalf("expected a field error for email, got %v", vErr.FieldErrors)
		}
	})

	t.Run("normalizes the email and stores the hash", func(t *testing.T) {
		users := &userRepoStub{}
		svc := NewUserService(users, &calendarRepoStub{}, stubHasher, sequentialIDs("id"), fixedClock(now), nil)

		user, err := svc.Register(context.Background(), valid)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "taro@example.com" {
			t.Fatalf("expected a lowercased email, got %q", user.Email)
		}
		if users.hash != "hash:open sesame" {
			t.Fatalf("expected the derived hash to be stored, got %q", users.hash)
		}
	})

	t.Run("creates the default calendar alongside the account", func(t *testing.T) {
		users := &userRepoStub{}
		calendars := &calendarRepoStub{}
		svc := NewUserService(users, calendars, stubHasher, sequentialIDs("id"), fixedClock(now), nil)

		user, err := svc.Register(context.Background(), valid)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calendars.created.UserID != user.ID {
			t.Fatalf("expected the calendar owned by %q, got %q", user.ID, calendars.created.UserID)
		}
		if calendars.created.Name != DefaultCalendarName {
			t.Fatalf("expected %q, got %q", DefaultCalendarName, calendars.created.Name)
		}
		if calendars.created.Color != DefaultCalendarColor {
			t.Fatalf("expected %q, got %q", DefaultCalendarColor, calendars.created.Color)
		}
		if !calendars.created.IsDefault {
			t.Fatalf("expected the signup calendar to be marked default")
		}
	})

	t.Run("maps a duplicate email", func(t *testing.T) {
		users := &userRepoStub{createErr: persistence.ErrDuplicate}
		svc := NewUserService(users, &calendarRepoStub{}, stubHasher, sequentialIDs("id"), fixedClock(now), nil)

		_, err := svc.Register(context.Background(), valid)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}
