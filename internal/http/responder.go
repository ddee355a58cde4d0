package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/flowfly/internal/application"
	"github.com/example/flowfly/internal/logging"
)

var (
	errBadRequestBody      = errors.New("invalid request body")
	errInvalidResourceID   = errors.New("invalid resource id")
	errMissingSessionToken = errors.New("authentication token required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

// envelope is the uniform response wrapper: every body carries a success flag
// and errors additionally carry a message.
type envelope map[string]any

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeSuccess(ctx context.Context, w http.ResponseWriter, status int, fields envelope) {
	body := envelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	r.writeJSON(ctx, w, status, body)
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, envelope{"success": false, "message": message})
}

// handleServiceError maps application errors onto the HTTP status taxonomy:
// validation and invariant violations are 400, missing or foreign resources
// 404, ownership rejections 403, credential problems 401, the rest 500.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, envelope{
			"success": false,
			"message": "validation failed",
			"errors":  vErr.FieldErrors,
		})
	case errors.Is(err, application.ErrInvariantViolation):
		r.writeJSON(ctx, w, http.StatusBadRequest, envelope{"success": false, "message": trimErrorPrefix(err)})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusBadRequest, envelope{"success": false, "message": "resource already exists"})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, envelope{"success": false, "message": "resource not found"})
	case errors.Is(err, application.ErrPermissionDenied):
		r.writeJSON(ctx, w, http.StatusForbidden, envelope{"success": false, "message": "you do not own this resource"})
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, envelope{"success": false, "message": "authentication failed"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, envelope{"success": false, "message": "internal server error"})
	}
}

// trimErrorPrefix strips the "application:" namespace so user-facing messages
// read naturally while wrapped detail is preserved.
func trimErrorPrefix(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, "application: "); idx >= 0 {
		msg = msg[idx+len("application: "):]
	}
	return msg
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}
