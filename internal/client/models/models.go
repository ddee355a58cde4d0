// Package models defines the client-side snapshot and queue record types
// shared by the mirror, the API client and the sync coordinator.
package models

import "time"

// Calendar is the client snapshot of a server calendar.
type Calendar struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"isDefault"`
}

// Event is the client snapshot of a server event. Times stay naive HH:MM
// strings and Date is the server's 2006-01-02 form.
type Event struct {
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
}

// Mutation states walked by every queued record.
const (
	MutationPending   = "pending"
	MutationSyncing   = "syncing"
	MutationCommitted = "committed"
	MutationFailed    = "failed"
)

// Entity kinds a mutation can target.
const (
	EntityCalendar = "calendar"
	EntityEvent    = "event"
)

// Operation kinds a mutation can carry.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MutationRecord is one buffered offline mutation. TargetID holds either a
// server id or a provisional uuid minted at enqueue time; Payload is the JSON
// snapshot of the request body captured when the user acted.
type MutationRecord struct {
	ID        string
	Entity    string
	Op        string
	TargetID  string
	Payload   []byte
	State     string
	LastError string
	CreatedAt time.Time
}

// Retryable reports whether the record should be offered to the next replay
// pass. Failed records stay visible for the user but are retried too; only
// committed records are done.
func (r MutationRecord) Retryable() bool {
	return r.State == MutationPending || r.State == MutationFailed
}
