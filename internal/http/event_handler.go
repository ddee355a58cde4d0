package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/flowfly/internal/application"
)

type eventService interface {
	Create(ctx context.Context, userID string, input application.EventInput) (application.Event, error)
	Update(ctx context.Context, userID, eventID string, patch application.EventPatch) (application.Event, error)
	Delete(ctx context.Context, userID, eventID string) error
	ListForUser(ctx context.Context, userID string, filter application.EventListFilter) ([]application.Event, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	filter := buildEventFilter(r.URL.Query())

	events, err := h.service.ListForUser(r.Context(), principal.UserID, filter)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list events", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"events": toEventDTOs(events),
	})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.Create(r.Context(), principal.UserID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, envelope{
		"event": toEventDTO(event),
	})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req eventPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.Update(r.Context(), principal.UserID, eventID, req.toPatch())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"event": toEventDTO(event),
	})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.Delete(r.Context(), principal.UserID, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "event_id", eventID).InfoContext(r.Context(), "event deleted")
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, envelope{
		"message": "event deleted",
	})
}

// buildEventFilter parses the ?year&month&day&date query parameters. Invalid
// numbers are ignored rather than rejected, matching the lenient list contract.
func buildEventFilter(values url.Values) application.EventListFilter {
	var filter application.EventListFilter

	if year, err := strconv.Atoi(values.Get("year")); err == nil {
		filter.Year = year
	}
	if month, err := strconv.Atoi(values.Get("month")); err == nil && month >= 1 && month <= 12 {
		filter.Month = time.Month(month)
	}
	if raw := values.Get("day"); raw != "" {
		if day, err := strconv.Atoi(raw); err == nil {
			filter.Day = &day
		}
	}
	if raw := values.Get("date"); raw != "" {
		if date, err := time.Parse("2006-01-02", raw); err == nil {
			filter.Date = &date
		}
	}

	return filter
}

type eventRequest struct {
	Title       string   `json:"title"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Color       string   `json:"color"`
	Day         *int     `json:"day"`
	Date        string   `json:"date"`
	CalendarID  string   `json:"calendarId"`
	Attendees   []string `json:"attendees"`
	Organizer   string   `json:"organizer"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:       strings.TrimSpace(r.Title),
		StartTime:   strings.TrimSpace(r.StartTime),
		EndTime:     strings.TrimSpace(r.EndTime),
		Description: r.Description,
		Location:    strings.TrimSpace(r.Location),
		Color:       strings.TrimSpace(r.Color),
		Day:         r.Day,
		Date:        strings.TrimSpace(r.Date),
		CalendarID:  strings.TrimSpace(r.CalendarID),
		Attendees:   append([]string(nil), r.Attendees...),
		Organizer:   strings.TrimSpace(r.Organizer),
	}
}

type eventPatchRequest struct {
	Title       *string  `json:"title"`
	StartTime   *string  `json:"startTime"`
	EndTime     *string  `json:"endTime"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	Color       *string  `json:"color"`
	Day         *int     `json:"day"`
	Date        *string  `json:"date"`
	CalendarID  *string  `json:"calendarId"`
	Attendees   []string `json:"attendees"`
	Organizer   *string  `json:"organizer"`
}

func (r eventPatchRequest) toPatch() application.EventPatch {
	return application.EventPatch{
		Title:       r.Title,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Description: r.Description,
		Location:    r.Location,
		Color:       r.Color,
		Day:         r.Day,
		Date:        r.Date,
		CalendarID:  r.CalendarID,
		Attendees:   r.Attendees,
		Organizer:   r.Organizer,
	}
}

type eventDTO struct {
	ID          string   `json:"id"`
	CalendarID  string   `json:"calendarId"`
	Title       string   `json:"title"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Color       string   `json:"color"`
	Day         int      `json:"day"`
	Date        string   `json:"date"`
	Attendees   []string `json:"attendees"`
	Organizer   string   `json:"organizer"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		CalendarID:  event.CalendarID,
		Title:       event.Title,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		Description: event.Description,
		Location:    event.Location,
		Color:       event.Color,
		Day:         event.Day,
		Date:        event.Date.Format("2006-01-02"),
		Attendees:   append([]string(nil), event.Attendees...),
		Organizer:   event.Organizer,
		CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}
