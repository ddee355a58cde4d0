package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/flowfly/internal/persistence"
	"github.com/example/flowfly/internal/testfixtures"
)

func TestUserRepository_CreateUser(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := harness.Users.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.Email != user.Email {
		t.Errorf("expected email %q, got %q", user.Email, retrieved.Email)
	}
	if retrieved.DisplayName != user.DisplayName {
		t.Errorf("expected display name %q, got %q", user.DisplayName, retrieved.DisplayName)
	}
	if retrieved.PasswordHash != user.PasswordHash {
		t.Errorf("expected the password hash to round-trip")
	}
}

func TestUserRepository_CreateUser_DuplicateEmail(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	first := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	second := testfixtures.NewUserFixture(testfixtures.WithUserID(harness.IDs.Next())).Persistence()
	err := harness.Users.CreateUser(ctx, second)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a reused email, got %v", err)
	}
}

func TestUserRepository_GetUserByEmail(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := harness.Users.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if retrieved.ID != user.ID {
		t.Errorf("expected id %q, got %q", user.ID, retrieved.ID)
	}

	if _, err := harness.Users.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown email, got %v", err)
	}
}

func TestUserRepository_GetUser_NotFound(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	_, err := harness.Users.GetUser(context.Background(), "missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
