package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/flowfly/internal/application"
)

type notificationService interface {
	ListForUser(ctx context.Context, userID string) ([]application.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (application.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
}

type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	base := defaultLogger(logger)
	return &NotificationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NotificationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NotificationHandler", operation, attrs...)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	notifications, err := h.service.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list notifications", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"notifications": toNotificationDTOs(notifications),
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	notification, err := h.service.MarkRead(r.Context(), principal.UserID, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"notification": toNotificationDTO(notification),
	})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.MarkAllRead(r.Context(), principal.UserID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"message": "all notifications marked read",
	})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.Delete(r.Context(), principal.UserID, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "notification_id", id).InfoContext(r.Context(), "notification deleted")
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"message": "notification deleted",
	})
}

func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteAll(r.Context(), principal.UserID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"message": "notifications cleared",
	})
}

type notificationDTO struct {
	ID        string  `json:"id"`
	EventID   *string `json:"eventId,omitempty"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	Read      bool    `json:"read"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"createdAt"`
}

func toNotificationDTO(notification application.Notification) notificationDTO {
	return notificationDTO{
		ID:        notification.ID,
		EventID:   notification.EventID,
		Title:     notification.Title,
		Message:   notification.Message,
		Timestamp: notification.Timestamp,
		Read:      notification.Read,
		Type:      notification.Type,
		CreatedAt: notification.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toNotificationDTOs(notifications []application.Notification) []notificationDTO {
	out := make([]notificationDTO, 0, len(notifications))
	for _, notification := range notifications {
		out = append(out, toNotificationDTO(notification))
	}
	return out
}
