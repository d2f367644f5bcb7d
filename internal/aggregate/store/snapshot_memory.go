package store

import (
	"context"
	"fmt"
	"sync"

	"velum/internal/aggregate/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

// InMemorySnapshotStore caches decrypted count snapshots for single-process
// deployments. Entries never expire; each Put overwrites the last reading.
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[id.Category]models.CountSnapshot
}

func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{
		snapshots: make(map[id.Category]models.CountSnapshot),
	}
}

// Put stores the latest snapshot for its category.
func (s *InMemorySnapshotStore) Put(_ context.Context, snapshot models.CountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Category] = snapshot
	return nil
}

// Get returns the latest snapshot for the category.
func (s *InMemorySnapshotStore) Get(_ context.Context, category id.Category) (models.CountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[category]
	if !ok {
		return models.CountSnapshot{}, fmt.Errorf("no snapshot for category %s: %w", category, sentinel.ErrNotFound)
	}
	return snapshot, nil
}

// GetMany returns the snapshots present for the given categories. Missing
// categories are simply absent from the result.
func (s *InMemorySnapshotStore) GetMany(_ context.Context, categories []id.Category) (map[id.Category]models.CountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[id.Category]models.CountSnapshot, len(categories))
	for _, category := range categories {
		if snapshot, ok := s.snapshots[category]; ok {
			found[category] = snapshot
		}
	}
	return found, nil
}
