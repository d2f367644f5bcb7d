package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"velum/internal/twin/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the twin id was never allocated
// - validation errors from Execute callbacks pass through untranslated
// - nil on success

// InMemoryStore holds twin records for dev and test deployments. Ids are
// allocated from a counter under the store lock, so they are strictly
// increasing and never reused. Records are never deleted.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	twins  map[id.TwinID]*models.Twin
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		twins: make(map[id.TwinID]*models.Twin),
	}
}

// Create allocates the next id and stores a new twin. The ciphertexts are
// cloned so the caller's buffers never alias store state.
func (s *InMemoryStore) Create(_ context.Context, organType, physioData, geneticMarkers id.Ciphertext, now time.Time) (*models.Twin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	twinID := id.TwinID(s.nextID + 1)
	twin, err := models.NewTwin(twinID, organType.Clone(), physioData.Clone(), geneticMarkers.Clone(), now)
	if err != nil {
		return nil, err
	}
	s.nextID++
	s.twins[twinID] = twin
	return twin.Clone(), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, twinID id.TwinID) (*models.Twin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	twin, ok := s.twins[twinID]
	if !ok {
		return nil, fmt.Errorf("twin %s not found: %w", twinID, sentinel.ErrNotFound)
	}
	return twin.Clone(), nil
}

// SetParams overwrites the twin's pending parameter slot. Requests already
// issued against the previous slot keep their captured payloads.
func (s *InMemoryStore) SetParams(_ context.Context, twinID id.TwinID, params *models.SimulationParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	twin, ok := s.twins[twinID]
	if !ok {
		return fmt.Errorf("twin %s not found: %w", twinID, sentinel.ErrNotFound)
	}
	twin.ApplyParams(params.Clone())
	return nil
}

// Execute runs validate then mutate on the twin while the store lock is
// held, so check-then-act sequences cannot interleave. Any validate error
// aborts with no mutation.
func (s *InMemoryStore) Execute(_ context.Context, twinID id.TwinID, validate func(*models.Twin) error, mutate func(*models.Twin)) (*models.Twin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	twin, ok := s.twins[twinID]
	if !ok {
		return nil, fmt.Errorf("twin %s not found: %w", twinID, sentinel.ErrNotFound)
	}
	if err := validate(twin); err != nil {
		return nil, err
	}
	mutate(twin)
	return twin.Clone(), nil
}
