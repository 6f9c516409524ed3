package stub

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/fetch"
)

func TestFetcherServesByNormalizedName(t *testing.T) {
	f := NewFetcher(domain.StoreSteam, []*domain.RawQuote{
		{Title: "The Witcher 3: Wild Hunt", Store: domain.StoreSteam, PriceAmount: 9.99, ObservedAt: 1},
	})

	// Punctuation and article differences fold away.
	q, err := f.Fetch(context.Background(), "Witcher 3 Wild Hunt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if q.PriceAmount != 9.99 {
		t.Errorf("price = %v, want 9.99", q.PriceAmount)
	}

	// Returned quote is a copy.
	q.PriceAmount = 0
	q2, err := f.Fetch(context.Background(), "The Witcher 3: Wild Hunt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if q2.PriceAmount != 9.99 {
		t.Errorf("fixture mutated through returned quote")
	}
}

func TestFetcherNoListing(t *testing.T) {
	f := NewFetcher(domain.StoreGOG, nil)

	_, err := f.Fetch(context.Background(), "Anything")
	if !errors.Is(err, fetch.ErrNoListing) {
		t.Fatalf("err = %v, want ErrNoListing", err)
	}
}

func TestFailingFetcher(t *testing.T) {
	f := NewFailingFetcher(domain.StoreEpic, errors.New("boom"))

	_, err := f.Fetch(context.Background(), "Anything")
	if !errors.Is(err, fetch.ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch", err)
	}
}

func TestFetcherHonorsCancellation(t *testing.T) {
	f := NewFetcher(domain.StoreSteam, []*domain.RawQuote{
		{Title: "Hades", Store: domain.StoreSteam, PriceAmount: 6.24, ObservedAt: 1},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Fetch(ctx, "Hades"); !errors.Is(err, fetch.ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch on cancelled context", err)
	}
}

func TestLoadFixtures(t *testing.T) {
	fetchers, err := LoadFixtures(filepath.Join("testdata", "quotes.json"))
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	if len(fetchers) != 3 {
		t.Fatalf("got %d fetchers, want 3 (STEAM, EPIC, GOG)", len(fetchers))
	}

	// Ordered by the canonical store order.
	wantStores := []domain.Store{domain.StoreSteam, domain.StoreEpic, domain.StoreGOG}
	for i, f := range fetchers {
		if f.Store() != wantStores[i] {
			t.Errorf("fetcher[%d].Store() = %s, want %s", i, f.Store(), wantStores[i])
		}
	}

	q, err := fetchers[1].Fetch(context.Background(), "Hades")
	if err != nil {
		t.Fatalf("Fetch from EPIC: %v", err)
	}
	if q.PriceAmount != 6.24 || q.DiscountPercent != 75 {
		t.Errorf("quote = %.2f/%.0f%%, want 6.24/75%%", q.PriceAmount, q.DiscountPercent)
	}
}

func TestLoadFixturesMissingFile(t *testing.T) {
	_, err := LoadFixtures(filepath.Join("testdata", "nonexistent.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
