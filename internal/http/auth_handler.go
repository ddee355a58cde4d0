package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/flowfly/internal/application"
)

type registrationService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
}

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
}

type AuthHandler struct {
	users     registrationService
	sessions  authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(users registrationService, sessions authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{users: users, sessions: sessions, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.users.Register(r.Context(), application.RegisterParams{
		Email:       strings.TrimSpace(strings.ToLower(req.Email)),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
	})
	if err != nil {
		h.log(r.Context(), "Register", "error_kind", application.ErrorKind(err)).
			ErrorContext(r.Context(), "registration rejected", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Register", "user_id", user.ID).InfoContext(r.Context(), "user registered")
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, envelope{
		"user": toUserDTO(user),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(r.Context(), "Login", "email", email)

	result, err := h.sessions.Authenticate(r.Context(), application.AuthenticateParams{
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			logger.ErrorContext(r.Context(), "authentication rejected", "error", err)
			h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, envelope{
				"success": false,
				"message": "email or password is incorrect",
			})
			return
		}
		logger.ErrorContext(r.Context(), "authentication failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("X-Session-Token", result.Session.Token)
	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "user authenticated")

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"token":     result.Session.Token,
		"expiresAt": result.Session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"user":      toUserDTO(result.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractBearerToken(r)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	if err := h.sessions.RevokeSession(r.Context(), token); err != nil {
		h.log(r.Context(), "Logout", "error_kind", application.ErrorKind(err)).
			ErrorContext(r.Context(), "failed to revoke session", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Logout").InfoContext(r.Context(), "session revoked")
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"message": "logged out",
	})
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
