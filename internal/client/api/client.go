// Package api implements the HTTP client for the calendar server. Every call
// carries a bounded timeout so offline replay can classify failures as
// retryable (network) or terminal (server rejection).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/flowfly/internal/client/models"
)

// RequestError wraps a server rejection. Status carries the HTTP code and
// Message the server's explanation.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// ErrUnavailable marks transport-level failures: connection refused, DNS,
// timeouts. Callers treat these as retryable.
var ErrUnavailable = errors.New("server unavailable")

// Client talks JSON to the calendar server.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	timeout time.Duration
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// SetToken replaces the bearer credential used for subsequent calls.
func (c *Client) SetToken(token string) { c.token = token }

// Ping probes the health endpoint. A nil error means the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var out struct{}
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

type registerResponse struct {
	User struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

// Register creates an account and returns the new user id.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (string, error) {
	body := map[string]string{"email": email, "password": password, "displayName": displayName}
	var out registerResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return "", err
	}
	return out.User.ID, nil
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Login authenticates and stores the issued bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	var out struct{}
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, &out)
}

type calendarsResponse struct {
	Calendars []models.Calendar `json:"calendars"`
}

type calendarResponse struct {
	Calendar models.Calendar `json:"calendar"`
}

func (c *Client) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	var out calendarsResponse
	if err := c.do(ctx, http.MethodGet, "/calendars", nil, &out); err != nil {
		return nil, err
	}
	return out.Calendars, nil
}

func (c *Client) CreateCalendar(ctx context.Context, payload json.RawMessage) (models.Calendar, error) {
	var out calendarResponse
	if err := c.do(ctx, http.MethodPost, "/calendars", payload, &out); err != nil {
		return models.Calendar{}, err
	}
	return out.Calendar, nil
}

func (c *Client) UpdateCalendar(ctx context.Context, id string, payload json.RawMessage) (models.Calendar, error) {
	var out calendarResponse
	if err := c.do(ctx, http.MethodPut, "/calendars/"+url.PathEscape(id), payload, &out); err != nil {
		return models.Calendar{}, err
	}
	return out.Calendar, nil
}

func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	var out struct{}
	return c.do(ctx, http.MethodDelete, "/calendars/"+url.PathEscape(id), nil, &out)
}

type eventsResponse struct {
	Events []models.Event `json:"events"`
}

type eventResponse struct {
	Event models.Event `json:"event"`
}

// EventQuery narrows ListEvents. Zero values are omitted from the request.
type EventQuery struct {
	Year  int
	Month int
	Day   *int
	Date  string
}

func (c *Client) ListEvents(ctx context.Context, query EventQuery) ([]models.Event, error) {
	values := url.Values{}
	if query.Year != 0 {
		values.Set("year", strconv.Itoa(query.Year))
	}
	if query.Month != 0 {
		values.Set("month", strconv.Itoa(query.Month))
	}
	if query.Day != nil {
		values.Set("day", strconv.Itoa(*query.Day))
	}
	if query.Date != "" {
		values.Set("date", query.Date)
	}

	path := "/events"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out eventsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) CreateEvent(ctx context.Context, payload json.RawMessage) (models.Event, error) {
	var out eventResponse
	if err := c.do(ctx, http.MethodPost, "/events", payload, &out); err != nil {
		return models.Event{}, err
	}
	return out.Event, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id string, payload json.RawMessage) (models.Event, error) {
	var out eventResponse
	if err := c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(id), payload, &out); err != nil {
		return models.Event{}, err
	}
	return out.Event, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	var out struct{}
	return c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, &out)
}

// do performs one bounded request and decodes the uniform response envelope.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		switch payload := body.(type) {
		case json.RawMessage:
			reader = bytes.NewReader(payload)
		default:
			encoded, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			reader = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var wrapper struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return &RequestError{Status: resp.StatusCode, Message: "malformed server response"}
		}
	}

	if resp.StatusCode >= 400 || (len(data) > 0 && !wrapper.Success) {
		message := wrapper.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &RequestError{Status: resp.StatusCode, Message: message}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &RequestError{Status: resp.StatusCode, Message: "malformed server response"}
		}
	}
	return nil
}
