package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/flowfly/internal/application"
)

type calendarService interface {
	Create(ctx context.Context, userID string, input application.CalendarInput) (application.Calendar, error)
	Update(ctx context.Context, userID, calendarID string, patch application.CalendarPatch) (application.Calendar, error)
	Delete(ctx context.Context, userID, calendarID string) error
	ListForUser(ctx context.Context, userID string) ([]application.Calendar, error)
}

type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	calendars, err := h.service.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list calendars", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"calendars": toCalendarDTOs(calendars),
	})
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req calendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	calendar, err := h.service.Create(r.Context(), principal.UserID, application.CalendarInput{
		Name:  strings.TrimSpace(req.Name),
		Color: strings.TrimSpace(req.Color),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "calendar_id", calendar.ID).InfoContext(r.Context(), "calendar created")
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, envelope{
		"calendar": toCalendarDTO(calendar),
	})
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req calendarPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	calendar, err := h.service.Update(r.Context(), principal.UserID, calendarID, application.CalendarPatch{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"calendar": toCalendarDTO(calendar),
	})
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.Delete(r.Context(), principal.UserID, calendarID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "calendar_id", calendarID).InfoContext(r.Context(), "calendar deleted")
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"message": "calendar deleted",
	})
}

type calendarRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type calendarPatchRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type calendarDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toCalendarDTO(calendar application.Calendar) calendarDTO {
	return calendarDTO{
		ID:        calendar.ID,
		Name:      calendar.Name,
		Color:     calendar.Color,
		IsDefault: calendar.IsDefault,
		CreatedAt: calendar.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: calendar.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toCalendarDTOs(calendars []application.Calendar) []calendarDTO {
	out := make([]calendarDTO, 0, len(calendars))
	for _, calendar := range calendars {
		out = append(out, toCalendarDTO(calendar))
	}
	return out
}
