package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

func seedTitle(t *testing.T, pool *Pool, titleID string) {
	t.Helper()
	store := NewTitleStore(pool)
	err := store.Insert(context.Background(), &domain.Title{
		TitleID:     titleID,
		DisplayName: titleID,
		Aliases:     []string{titleID},
		CreatedAt:   1700000000000,
	})
	require.NoError(t, err)
}

func historyQuote(titleID string, store domain.Store, price float64, observedAt int64) *domain.PriceQuote {
	return &domain.PriceQuote{
		TitleID:     titleID,
		Store:       store,
		PriceAmount: price,
		ObservedAt:  observedAt,
	}
}

func TestPriceHistoryStore_AppendAndMinimum(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-hk")
	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	prices := []float64{24.99, 14.99, 19.99}
	for i, price := range prices {
		err := store.Append(ctx, historyQuote("title-hk", domain.StoreSteam, price, 1700000000000+int64(i)*1000))
		require.NoError(t, err)
	}

	min, err := store.HistoricalMinimum(ctx, "title-hk", domain.StoreSteam)
	require.NoError(t, err)
	assert.Equal(t, 14.99, min)

	latest, err := store.Latest(ctx, "title-hk", domain.StoreSteam)
	require.NoError(t, err)
	assert.Equal(t, 19.99, latest.PriceAmount)

	history, err := store.History(ctx, "title-hk", domain.StoreSteam)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 24.99, history[0].PriceAmount)
	assert.Equal(t, 19.99, history[2].PriceAmount)
}

func TestPriceHistoryStore_RejectsOutOfOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-ooo")
	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, historyQuote("title-ooo", domain.StoreGOG, 9.99, 1700000002000)))

	// Strictly earlier observation
	err := store.Append(ctx, historyQuote("title-ooo", domain.StoreGOG, 7.99, 1700000001000))
	assert.ErrorIs(t, err, storage.ErrInvalidQuote)

	// Equal observation instant
	err = store.Append(ctx, historyQuote("title-ooo", domain.StoreGOG, 7.99, 1700000002000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// History and minimum unchanged
	history, err := store.History(ctx, "title-ooo", domain.StoreGOG)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	min, err := store.HistoricalMinimum(ctx, "title-ooo", domain.StoreGOG)
	require.NoError(t, err)
	assert.Equal(t, 9.99, min)
}

func TestPriceHistoryStore_RejectsInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-bad")
	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	err := store.Append(ctx, historyQuote("title-bad", domain.StoreSteam, -1.00, 1700000000000))
	assert.ErrorIs(t, err, storage.ErrInvalidQuote)

	err = store.Append(ctx, historyQuote("title-bad", "NOT_A_STORE", 9.99, 1700000000000))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Append(ctx, historyQuote("", domain.StoreSteam, 9.99, 1700000000000))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPriceHistoryStore_SeriesAreIndependent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-ind")
	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, historyQuote("title-ind", domain.StoreSteam, 19.99, 1700000002000)))

	// An earlier observation on a different store is fine.
	require.NoError(t, store.Append(ctx, historyQuote("title-ind", domain.StoreEpic, 12.99, 1700000001000)))

	min, err := store.HistoricalMinimum(ctx, "title-ind", domain.StoreSteam)
	require.NoError(t, err)
	assert.Equal(t, 19.99, min)

	min, err = store.HistoricalMinimum(ctx, "title-ind", domain.StoreEpic)
	require.NoError(t, err)
	assert.Equal(t, 12.99, min)
}

func TestPriceHistoryStore_EmptySeries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	_, err := store.HistoricalMinimum(ctx, "no-title", domain.StoreSteam)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Latest(ctx, "no-title", domain.StoreSteam)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := store.History(ctx, "no-title", domain.StoreSteam)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPriceHistoryStore_ConcurrentAppends(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-conc")
	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	// Distinct timestamps racing on one series; the row lock serializes them
	// and every append with a later timestamp than the current head lands.
	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Append(ctx, historyQuote("title-conc", domain.StoreHumble, float64(10+i), 1700000000000+int64(i)*1000))
		}(i)
	}
	wg.Wait()

	landed := 0
	for _, err := range errs {
		if err == nil {
			landed++
		} else {
			assert.ErrorIs(t, err, storage.ErrInvalidQuote)
		}
	}
	require.Positive(t, landed)

	history, err := store.History(ctx, "title-conc", domain.StoreHumble)
	require.NoError(t, err)
	assert.Len(t, history, landed)

	// Minimum equals the full-scan minimum of what landed.
	min, err := store.HistoricalMinimum(ctx, "title-conc", domain.StoreHumble)
	require.NoError(t, err)
	expect := history[0].PriceAmount
	for _, q := range history {
		if q.PriceAmount < expect {
			expect = q.PriceAmount
		}
	}
	assert.Equal(t, expect, min)
}

func TestPriceHistoryStore_ConcurrentFirstAppends(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedTitle(t, pool, "title-first")
	store := NewPriceHistoryStore(pool)
	ctx := context.Background()

	// Two appends race on a fresh series. Whichever commits first becomes
	// the head; the other either lands (it is later) or is rejected. The
	// head must never regress below the later timestamp, so a subsequent
	// append between the two instants must always be rejected.
	var wg sync.WaitGroup
	var errLate, errEarly error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errLate = store.Append(ctx, historyQuote("title-first", domain.StoreSteam, 29.99, 1700000000200))
	}()
	go func() {
		defer wg.Done()
		errEarly = store.Append(ctx, historyQuote("title-first", domain.StoreSteam, 19.99, 1700000000100))
	}()
	wg.Wait()

	require.NoError(t, errLate)
	if errEarly != nil {
		assert.ErrorIs(t, errEarly, storage.ErrInvalidQuote)
	}

	err := store.Append(ctx, historyQuote("title-first", domain.StoreSteam, 9.99, 1700000000150))
	assert.ErrorIs(t, err, storage.ErrInvalidQuote)

	history, err := store.History(ctx, "title-first", domain.StoreSteam)
	require.NoError(t, err)
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].ObservedAt, history[i].ObservedAt)
	}
}
