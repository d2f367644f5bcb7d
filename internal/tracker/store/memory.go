package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"velum/internal/tracker/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

// Error Contract:
// - ErrConflict when registering a request id that is already pending
// - ErrNotFound when resolving a request id with no pending entry
// - nil on success

// InMemoryStore holds pending request entries. Resolution removes the entry
// under the same lock that reads it, so exactly one caller wins a given
// request id.
type InMemoryStore struct {
	mu      sync.Mutex
	pending map[id.RequestID]models.PendingRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pending: make(map[id.RequestID]models.PendingRequest),
	}
}

// Register files a new pending entry.
func (s *InMemoryStore) Register(_ context.Context, entry models.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[entry.RequestID]; ok {
		return fmt.Errorf("request %s already pending: %w", entry.RequestID, sentinel.ErrConflict)
	}
	s.pending[entry.RequestID] = entry
	return nil
}

// Resolve removes and returns the pending entry for the request id.
func (s *InMemoryStore) Resolve(_ context.Context, requestID id.RequestID) (models.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[requestID]
	if !ok {
		return models.PendingRequest{}, fmt.Errorf("request %s not pending: %w", requestID, sentinel.ErrNotFound)
	}
	delete(s.pending, requestID)
	return entry, nil
}

// List returns all pending entries ordered by registration time.
func (s *InMemoryStore) List(_ context.Context) ([]models.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.PendingRequest, 0, len(s.pending))
	for _, entry := range s.pending {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RegisteredAt.Before(entries[j].RegisteredAt)
	})
	return entries, nil
}

// Sweep removes entries registered before the cutoff and returns them.
func (s *InMemoryStore) Sweep(_ context.Context, cutoff time.Time) ([]models.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var retired []models.PendingRequest
	for requestID, entry := range s.pending {
		if entry.RegisteredAt.Before(cutoff) {
			retired = append(retired, entry)
			delete(s.pending, requestID)
		}
	}
	sort.Slice(retired, func(i, j int) bool {
		return retired[i].RegisteredAt.Before(retired[j].RegisteredAt)
	})
	return retired, nil
}

// Len reports the pending population for the gauge.
func (s *InMemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), nil
}
