// Package models defines the aggregate-counter read models.
package models

import (
	"time"

	id "velum/pkg/domain"
)

// CountSnapshot is a decrypted point-in-time reading of one category
// counter. The encrypted counter remains the authority; a snapshot is
// informational and goes stale the moment another blind increment lands.
type CountSnapshot struct {
	Category    id.Category `json:"category"`
	Count       uint64      `json:"count"`
	DecryptedAt time.Time   `json:"decrypted_at"`
}

// Age reports how stale the snapshot is at the given instant.
func (s CountSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.DecryptedAt)
}
