package admin

import (
	"time"

	"velum/internal/tracker/models"
	"velum/pkg/platform/audit"
)

// PendingEntryResponse is the HTTP response DTO for one pending request.
type PendingEntryResponse struct {
	RequestID    string    `json:"request_id"`
	Kind         string    `json:"kind"`
	TwinID       int64     `json:"twin_id,omitempty"`
	Category     string    `json:"category,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// PendingListResponse wraps the pending entries for HTTP response.
type PendingListResponse struct {
	Pending []PendingEntryResponse `json:"pending"`
	Total   int                    `json:"total"`
}

// SweepResponse reports one sweep invocation.
type SweepResponse struct {
	OlderThan string                 `json:"older_than"`
	Retired   []PendingEntryResponse `json:"retired"`
	Total     int                    `json:"total"`
}

// SecurityEventResponse is the HTTP response DTO for one security event.
type SecurityEventResponse struct {
	Timestamp       time.Time `json:"timestamp"`
	Subject         string    `json:"subject"`
	Action          string    `json:"action"`
	Reason          string    `json:"reason,omitempty"`
	IP              string    `json:"ip,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
	OracleRequestID string    `json:"oracle_request_id,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
	Severity        string    `json:"severity"`
}

// SecurityEventsResponse wraps the recent security events, newest first.
// Dropped counts events that aged out of the forward queue, not the ring.
type SecurityEventsResponse struct {
	Events  []SecurityEventResponse `json:"events"`
	Total   int                     `json:"total"`
	Dropped int64                   `json:"dropped"`
}

func fromEntry(entry models.PendingRequest) PendingEntryResponse {
	return PendingEntryResponse{
		RequestID:    entry.RequestID.String(),
		Kind:         string(entry.Kind),
		TwinID:       int64(entry.Target.TwinID),
		Category:     entry.Target.Category.String(),
		RegisteredAt: entry.RegisteredAt,
	}
}

// FromPending maps pending entries to the list response.
func FromPending(entries []models.PendingRequest) PendingListResponse {
	resp := PendingListResponse{
		Pending: make([]PendingEntryResponse, 0, len(entries)),
		Total:   len(entries),
	}
	for _, entry := range entries {
		resp.Pending = append(resp.Pending, fromEntry(entry))
	}
	return resp
}

// FromSweep maps a sweep outcome to its response.
func FromSweep(olderThan time.Duration, retired []models.PendingRequest) SweepResponse {
	resp := SweepResponse{
		OlderThan: olderThan.String(),
		Retired:   make([]PendingEntryResponse, 0, len(retired)),
		Total:     len(retired),
	}
	for _, entry := range retired {
		resp.Retired = append(resp.Retired, fromEntry(entry))
	}
	return resp
}

// FromSecurityEvents maps ring events to the response form.
func FromSecurityEvents(events []audit.SecurityEvent, dropped int64) SecurityEventsResponse {
	resp := SecurityEventsResponse{
		Events:  make([]SecurityEventResponse, 0, len(events)),
		Total:   len(events),
		Dropped: dropped,
	}
	for _, event := range events {
		resp.Events = append(resp.Events, SecurityEventResponse{
			Timestamp:       event.Timestamp,
			Subject:         event.Subject,
			Action:          event.Action,
			Reason:          event.Reason,
			IP:              event.IP,
			UserAgent:       event.UserAgent,
			OracleRequestID: event.OracleRequestID,
			RequestID:       event.RequestID,
			Severity:        string(event.Severity),
		})
	}
	return resp
}
