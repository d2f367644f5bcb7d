package audit

import (
	"context"

	id "velum/pkg/domain"
)

// Store persists audit events. Outbox-backed implementations guarantee
// delivery to the event bus; the memory implementation backs dev and test
// deployments.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTwin(ctx context.Context, twinID id.TwinID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
