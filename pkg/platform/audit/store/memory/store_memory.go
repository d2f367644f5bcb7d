package memory

import (
	"context"
	"sync"

	id "velum/pkg/domain"
	audit "velum/pkg/platform/audit"
)

// InMemoryStore keeps events in append order for dev and test deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByTwin(_ context.Context, twinID id.TwinID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Event
	for _, event := range s.events {
		if event.TwinID == twinID {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

// ListRecent returns the last N events in append order.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.events) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.events[start:]...), nil
}
