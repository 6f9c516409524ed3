package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

func TestWatchlistStore_InsertAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-w1")
	store := NewWatchlistStore(pool)
	ctx := context.Background()

	entry := &domain.WatchlistEntry{
		EntryID:     "entry-1",
		TitleID:     "title-w1",
		TargetPrice: ptr(9.99),
		CreatedAt:   1700000000000,
	}
	require.NoError(t, store.Insert(ctx, entry))

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, "entry-1", got.EntryID)
	assert.Equal(t, "title-w1", got.TitleID)
	require.NotNil(t, got.TargetPrice)
	assert.Equal(t, 9.99, *got.TargetPrice)
	assert.Zero(t, got.LastCheckedAt)
	assert.Nil(t, got.LastNotifiedAt)
}

func TestWatchlistStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-w2")
	store := NewWatchlistStore(pool)
	ctx := context.Background()

	entry := &domain.WatchlistEntry{
		EntryID:   "entry-dup",
		TitleID:   "title-w2",
		CreatedAt: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, entry))
	assert.ErrorIs(t, store.Insert(ctx, entry), storage.ErrDuplicateKey)
}

func TestWatchlistStore_Remove(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-w3")
	store := NewWatchlistStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.WatchlistEntry{
		EntryID:   "entry-rm",
		TitleID:   "title-w3",
		CreatedAt: 1700000000000,
	}))

	require.NoError(t, store.Remove(ctx, "entry-rm"))

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, store.Remove(ctx, "entry-rm"), storage.ErrNotFound)
}

func TestWatchlistStore_MarkCheckedAndNotified(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-w4")
	store := NewWatchlistStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.WatchlistEntry{
		EntryID:   "entry-ts",
		TitleID:   "title-w4",
		CreatedAt: 1700000000000,
	}))

	require.NoError(t, store.MarkChecked(ctx, "entry-ts", 1700000005000))
	require.NoError(t, store.MarkNotified(ctx, "entry-ts", 1700000006000))

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, int64(1700000005000), entries[0].LastCheckedAt)
	require.NotNil(t, entries[0].LastNotifiedAt)
	assert.Equal(t, int64(1700000006000), *entries[0].LastNotifiedAt)

	assert.ErrorIs(t, store.MarkChecked(ctx, "no-entry", 1), storage.ErrNotFound)
	assert.ErrorIs(t, store.MarkNotified(ctx, "no-entry", 1), storage.ErrNotFound)
}
