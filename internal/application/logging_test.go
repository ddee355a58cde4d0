package application

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", ErrNotFound, "not_found"},
		{"permission denied", ErrPermissionDenied, "permission_denied"},
		{"invariant violation", ErrInvariantViolation, "invariant_violation"},
		{"already exists", ErrAlreadyExists, "already_exists"},
		{"validation", &ValidationError{FieldErrors: map[string]string{"name": "bad"}}, "validation"},
		{"unknown", errors.New("boom"), "unexpected"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
