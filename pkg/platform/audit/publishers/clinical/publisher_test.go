package clinical

import (
	"context"
	"errors"
	"testing"
	"time"

	id "velum/pkg/domain"
	audit "velum/pkg/platform/audit"
	"velum/pkg/platform/audit/store/memory"
	"velum/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(context.Context, audit.Event) error { return s.err }

func (s *failingStore) ListByTwin(context.Context, id.TwinID) ([]audit.Event, error) {
	return nil, s.err
}

func (s *failingStore) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, s.err
}

func TestPublisher_EmitPersists(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	defer pub.Close()

	twinID := id.TwinID(7)
	err := pub.Emit(context.Background(), audit.ClinicalEvent{
		TwinID: twinID,
		Action: string(audit.EventTwinCreated),
	})
	require.NoError(t, err)

	events, err := store.ListByTwin(context.Background(), twinID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventTwinCreated), events[0].Action)
	assert.Equal(t, audit.CategoryClinical, events[0].Category)
	assert.Equal(t, "twin:7", events[0].Subject)
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := New(memory.NewInMemoryStore())
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.ClinicalEvent{TwinID: id.TwinID(1)})
	require.Error(t, err)
}

func TestPublisher_RequiresTwinOrCategoryLabel(t *testing.T) {
	pub := New(memory.NewInMemoryStore())
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.ClinicalEvent{
		Action: string(audit.EventCountRequested),
	})
	require.Error(t, err)
}

func TestPublisher_CategoryLabelSubject(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.ClinicalEvent{
		CategoryLabel: "heart",
		Action:        string(audit.EventCountRevealed),
	})
	require.NoError(t, err)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "category:heart", events[0].Subject)
}

func TestPublisher_SetsTimestampFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	defer pub.Close()

	now := time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	err := pub.Emit(ctx, audit.ClinicalEvent{
		TwinID: id.TwinID(3),
		Action: string(audit.EventSimulationRequested),
	})
	require.NoError(t, err)

	events, err := store.ListByTwin(ctx, id.TwinID(3))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	defer pub.Close()

	customTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.ClinicalEvent{
		TwinID:    id.TwinID(5),
		Action:    string(audit.EventSimulationCompleted),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := store.ListByTwin(context.Background(), id.TwinID(5))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_FailClosed(t *testing.T) {
	storeErr := errors.New("outbox unavailable")
	pub := New(&failingStore{err: storeErr})
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.ClinicalEvent{
		TwinID: id.TwinID(1),
		Action: string(audit.EventTwinCreated),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}
