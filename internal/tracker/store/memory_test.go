package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velum/internal/tracker/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) simulationEntry(requestID string, registeredAt time.Time) models.PendingRequest {
	entry, err := models.NewPendingRequest(
		id.RequestID(requestID),
		models.KindSimulation,
		models.CallbackTarget{TwinID: 7},
		registeredAt,
	)
	s.Require().NoError(err)
	return entry
}

func (s *InMemoryStoreSuite) TestRegister() {
	s.Run("files a new entry", func() {
		err := s.store.Register(s.ctx, s.simulationEntry("req-1", s.now))
		s.NoError(err)

		n, err := s.store.Len(s.ctx)
		s.NoError(err)
		s.Equal(1, n)
	})

	s.Run("rejects a duplicate request id", func() {
		s.Require().NoError(s.store.Register(s.ctx, s.simulationEntry("req-dup", s.now)))

		err := s.store.Register(s.ctx, s.simulationEntry("req-dup", s.now))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("frees the id once resolved", func() {
		s.Require().NoError(s.store.Register(s.ctx, s.simulationEntry("req-cycle", s.now)))
		_, err := s.store.Resolve(s.ctx, id.RequestID("req-cycle"))
		s.Require().NoError(err)

		err = s.store.Register(s.ctx, s.simulationEntry("req-cycle", s.now))
		s.NoError(err)
	})
}

func (s *InMemoryStoreSuite) TestResolve() {
	s.Run("returns and removes the entry", func() {
		s.Require().NoError(s.store.Register(s.ctx, s.simulationEntry("req-2", s.now)))

		entry, err := s.store.Resolve(s.ctx, id.RequestID("req-2"))
		s.NoError(err)
		s.Equal(id.TwinID(7), entry.Target.TwinID)
		s.Equal(models.KindSimulation, entry.Kind)

		_, err = s.store.Resolve(s.ctx, id.RequestID("req-2"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Resolve(s.ctx, id.RequestID("req-never"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentResolveSingleWinner() {
	const resolvers = 32
	s.Require().NoError(s.store.Register(s.ctx, s.simulationEntry("req-race", s.now)))

	var wg sync.WaitGroup
	wins := make(chan models.PendingRequest, resolvers)
	for range resolvers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if entry, err := s.store.Resolve(s.ctx, id.RequestID("req-race")); err == nil {
				wins <- entry
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Len(wins, 1)
}

func (s *InMemoryStoreSuite) TestList() {
	older := s.simulationEntry("req-old", s.now.Add(-time.Hour))
	newer := s.simulationEntry("req-new", s.now)
	s.Require().NoError(s.store.Register(s.ctx, newer))
	s.Require().NoError(s.store.Register(s.ctx, older))

	entries, err := s.store.List(s.ctx)
	s.NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(id.RequestID("req-old"), entries[0].RequestID)
	s.Equal(id.RequestID("req-new"), entries[1].RequestID)
}

func (s *InMemoryStoreSuite) TestSweep() {
	stale := s.simulationEntry("req-stale", s.now.Add(-2*time.Hour))
	fresh := s.simulationEntry("req-fresh", s.now)
	s.Require().NoError(s.store.Register(s.ctx, stale))
	s.Require().NoError(s.store.Register(s.ctx, fresh))

	retired, err := s.store.Sweep(s.ctx, s.now.Add(-time.Hour))
	s.NoError(err)
	s.Require().Len(retired, 1)
	s.Equal(id.RequestID("req-stale"), retired[0].RequestID)

	n, err := s.store.Len(s.ctx)
	s.NoError(err)
	s.Equal(1, n)

	_, err = s.store.Resolve(s.ctx, id.RequestID("req-stale"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
