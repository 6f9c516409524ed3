package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

func archiveQuote(titleID string, store domain.Store, price float64, observedAt int64) *domain.PriceQuote {
	return &domain.PriceQuote{
		TitleID:         titleID,
		Store:           store,
		PriceAmount:     price,
		DiscountPercent: 0,
		ObservedAt:      observedAt,
		URL:             "https://example.com/deal",
	}
}

func TestQuoteArchiveStore_InsertBulkAndGetByTitleID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteArchiveStore(conn)
	ctx := context.Background()

	quotes := []*domain.PriceQuote{
		archiveQuote("title-hk", domain.StoreSteam, 14.99, 1700000002000),
		archiveQuote("title-hk", domain.StoreSteam, 9.99, 1700000001000),
		archiveQuote("title-hk", domain.StoreGOG, 12.49, 1700000001500),
		archiveQuote("title-other", domain.StoreSteam, 4.99, 1700000001000),
	}
	require.NoError(t, store.InsertBulk(ctx, quotes))

	got, err := store.GetByTitleID(ctx, "title-hk")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by observed_at ASC across stores.
	assert.Equal(t, int64(1700000001000), got[0].ObservedAt)
	assert.Equal(t, 9.99, got[0].PriceAmount)
	assert.Equal(t, int64(1700000002000), got[2].ObservedAt)
	assert.Equal(t, domain.StoreSteam, got[2].Store)
	assert.Equal(t, "https://example.com/deal", got[0].URL)
}

func TestQuoteArchiveStore_InsertBulkDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteArchiveStore(conn)
	ctx := context.Background()

	// Intra-batch duplicate fails the batch
	err := store.InsertBulk(ctx, []*domain.PriceQuote{
		archiveQuote("title-dup", domain.StoreSteam, 14.99, 1700000001000),
		archiveQuote("title-dup", domain.StoreSteam, 12.99, 1700000001000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Nothing landed
	got, err := store.GetByTitleID(ctx, "title-dup")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Duplicate against an existing row fails too
	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceQuote{
		archiveQuote("title-dup", domain.StoreSteam, 14.99, 1700000001000),
	}))
	err = store.InsertBulk(ctx, []*domain.PriceQuote{
		archiveQuote("title-dup", domain.StoreSteam, 12.99, 1700000001000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestQuoteArchiveStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteArchiveStore(conn)
	ctx := context.Background()

	var quotes []*domain.PriceQuote
	for i := 0; i < 5; i++ {
		quotes = append(quotes, archiveQuote("title-range", domain.StoreEpic, float64(10+i), 1700000000000+int64(i)*1000))
	}
	require.NoError(t, store.InsertBulk(ctx, quotes))

	// Inclusive bounds
	got, err := store.GetByTimeRange(ctx, "title-range", 1700000001000, 1700000003000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 11.0, got[0].PriceAmount)
	assert.Equal(t, 13.0, got[2].PriceAmount)

	// Empty range
	got, err = store.GetByTimeRange(ctx, "title-range", 1800000000000, 1900000000000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuoteArchiveStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteArchiveStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
