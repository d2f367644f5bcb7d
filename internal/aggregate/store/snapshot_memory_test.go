package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velum/internal/aggregate/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

func TestSnapshotStorePutGet(t *testing.T) {
	store := NewInMemorySnapshotStore()
	ctx := context.Background()
	decryptedAt := time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, models.CountSnapshot{
		Category:    "heart",
		Count:       3,
		DecryptedAt: decryptedAt,
	}))

	snapshot, err := store.Get(ctx, "heart")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snapshot.Count)
	assert.Equal(t, decryptedAt, snapshot.DecryptedAt)
}

func TestSnapshotStoreOverwrite(t *testing.T) {
	store := NewInMemorySnapshotStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.CountSnapshot{Category: "heart", Count: 1}))
	require.NoError(t, store.Put(ctx, models.CountSnapshot{Category: "heart", Count: 5}))

	snapshot, err := store.Get(ctx, "heart")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), snapshot.Count)
}

func TestSnapshotStoreMissing(t *testing.T) {
	store := NewInMemorySnapshotStore()

	_, err := store.Get(context.Background(), "liver")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSnapshotStoreGetMany(t *testing.T) {
	store := NewInMemorySnapshotStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.CountSnapshot{Category: "heart", Count: 2}))
	require.NoError(t, store.Put(ctx, models.CountSnapshot{Category: "liver", Count: 7}))

	found, err := store.GetMany(ctx, []id.Category{"heart", "liver", "kidney"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, uint64(2), found["heart"].Count)
	assert.Equal(t, uint64(7), found["liver"].Count)
	assert.NotContains(t, found, id.Category("kidney"))
}
