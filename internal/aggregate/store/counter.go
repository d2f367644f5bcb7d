package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when reading a category that was never observed
// - init/add callback errors pass through untranslated
// - nil on success

// InMemoryCounterStore holds one encrypted running count per category. Each
// entry carries its own lock: increments to the same category serialize
// while different categories proceed in parallel, homomorphic adds included.
type InMemoryCounterStore struct {
	mu       sync.RWMutex
	counters map[id.Category]*counterEntry
}

// counterEntry.value stays empty until the first increment completes its
// init step; empty entries are invisible to readers.
type counterEntry struct {
	mu    sync.Mutex
	value id.Ciphertext
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		counters: make(map[id.Category]*counterEntry),
	}
}

// Increment applies init (first observation only) then add while holding the
// category lock, so read-modify-write sequences for one category never
// interleave and no update is lost.
func (s *InMemoryCounterStore) Increment(_ context.Context, category id.Category, init func() (id.Ciphertext, error), add func(current id.Ciphertext) (id.Ciphertext, error)) error {
	s.mu.Lock()
	entry, ok := s.counters[category]
	if !ok {
		entry = &counterEntry{}
		s.counters[category] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.value.IsZero() {
		zero, err := init()
		if err != nil {
			return err
		}
		entry.value = zero.Clone()
	}

	next, err := add(entry.value.Clone())
	if err != nil {
		return err
	}
	entry.value = next.Clone()
	return nil
}

// Snapshot returns a copy of the category's current ciphertext.
func (s *InMemoryCounterStore) Snapshot(_ context.Context, category id.Category) (id.Ciphertext, error) {
	s.mu.RLock()
	entry, ok := s.counters[category]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("category %s not observed: %w", category, sentinel.ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.value.IsZero() {
		return nil, fmt.Errorf("category %s not observed: %w", category, sentinel.ErrNotFound)
	}
	return entry.value.Clone(), nil
}

// Categories returns the observed categories in lexical order.
func (s *InMemoryCounterStore) Categories(_ context.Context) ([]id.Category, error) {
	s.mu.RLock()
	entries := make(map[id.Category]*counterEntry, len(s.counters))
	for category, entry := range s.counters {
		entries[category] = entry
	}
	s.mu.RUnlock()

	categories := make([]id.Category, 0, len(entries))
	for category, entry := range entries {
		entry.mu.Lock()
		observed := !entry.value.IsZero()
		entry.mu.Unlock()
		if observed {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i] < categories[j]
	})
	return categories, nil
}
