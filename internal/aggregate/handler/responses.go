package handler

import (
	"time"

	"velum/internal/aggregate/models"
	"velum/internal/aggregate/service"
)

// CountResponse is the JSON shape of a decrypted count snapshot. AgeSeconds
// measures how long ago the decryption happened; blind increments applied
// since then are not reflected in Count.
type CountResponse struct {
	Category    string    `json:"category"`
	Count       uint64    `json:"count"`
	DecryptedAt time.Time `json:"decrypted_at"`
	AgeSeconds  float64   `json:"age_seconds"`
}

// FromSnapshot converts a count snapshot to its response shape.
func FromSnapshot(snapshot models.CountSnapshot, now time.Time) CountResponse {
	return CountResponse{
		Category:    snapshot.Category.String(),
		Count:       snapshot.Count,
		DecryptedAt: snapshot.DecryptedAt,
		AgeSeconds:  snapshot.Age(now).Seconds(),
	}
}

// CategorySummaryResponse pairs an observed category with its latest
// snapshot, if one exists.
type CategorySummaryResponse struct {
	Category string         `json:"category"`
	Snapshot *CountResponse `json:"snapshot,omitempty"`
}

// CategoriesResponse is the JSON shape of the category listing.
type CategoriesResponse struct {
	Categories []CategorySummaryResponse `json:"categories"`
	Total      int                       `json:"total"`
}

// FromSummaries converts category summaries to their response shape.
func FromSummaries(summaries []service.CategorySummary, now time.Time) CategoriesResponse {
	out := make([]CategorySummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		entry := CategorySummaryResponse{Category: summary.Category.String()}
		if summary.Snapshot != nil {
			snapshot := FromSnapshot(*summary.Snapshot, now)
			entry.Snapshot = &snapshot
		}
		out = append(out, entry)
	}
	return CategoriesResponse{Categories: out, Total: len(out)}
}

// DecryptionRequestedResponse acknowledges an accepted decryption request.
// The count itself arrives later through the oracle callback.
type DecryptionRequestedResponse struct {
	Category        string `json:"category"`
	OracleRequestID string `json:"oracle_request_id"`
}
