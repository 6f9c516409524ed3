package memory

import (
	"context"
	"errors"
	"testing"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

func TestQuoteArchiveStore_InsertBulkAndGet(t *testing.T) {
	store := NewQuoteArchiveStore()
	ctx := context.Background()

	quotes := []*domain.PriceQuote{
		quote("t1", domain.StoreSteam, 19.99, 3000),
		quote("t1", domain.StoreGOG, 17.99, 1000),
		quote("t2", domain.StoreSteam, 9.99, 2000),
	}
	if err := store.InsertBulk(ctx, quotes); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTitleID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByTitleID failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(result))
	}
	if result[0].ObservedAt != 1000 {
		t.Errorf("Expected observed_at ordering, first quote at %d", result[0].ObservedAt)
	}
}

func TestQuoteArchiveStore_DuplicateFailsBatch(t *testing.T) {
	store := NewQuoteArchiveStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PriceQuote{quote("t1", domain.StoreSteam, 19.99, 1000)}); err != nil {
		t.Fatalf("First InsertBulk failed: %v", err)
	}

	batch := []*domain.PriceQuote{
		quote("t1", domain.StoreSteam, 14.99, 2000),
		quote("t1", domain.StoreSteam, 19.99, 1000), // duplicate key
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Entire batch rejected: the new 2000 quote must not be present.
	result, _ := store.GetByTitleID(ctx, "t1")
	if len(result) != 1 {
		t.Errorf("Batch partially applied: %d quotes stored", len(result))
	}
}

func TestQuoteArchiveStore_GetByTimeRange(t *testing.T) {
	store := NewQuoteArchiveStore()
	ctx := context.Background()

	batch := []*domain.PriceQuote{
		quote("t1", domain.StoreSteam, 10, 1000),
		quote("t1", domain.StoreSteam, 11, 2000),
		quote("t1", domain.StoreSteam, 12, 3000),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "t1", 1500, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 quotes in range, got %d", len(result))
	}
}
