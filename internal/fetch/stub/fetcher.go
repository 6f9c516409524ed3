// Package stub provides fixture-backed fetchers for tests and offline runs.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/fetch"
	"game-deal-tracker/internal/idhash"
)

// Fetcher returns fixed in-memory quotes for one storefront.
// Implements fetch.Fetcher.
type Fetcher struct {
	store  domain.Store
	quotes map[string]*domain.RawQuote // keyed by normalized title name
	err    error                       // when set, every Fetch fails with it
}

// NewFetcher creates a stub fetcher serving the given quotes.
func NewFetcher(store domain.Store, quotes []*domain.RawQuote) *Fetcher {
	m := make(map[string]*domain.RawQuote, len(quotes))
	for _, q := range quotes {
		m[idhash.NormalizeName(q.Title)] = q
	}
	return &Fetcher{store: store, quotes: m}
}

// NewFailingFetcher creates a stub fetcher whose every Fetch fails.
func NewFailingFetcher(store domain.Store, err error) *Fetcher {
	return &Fetcher{store: store, err: err}
}

// Store identifies the storefront this fetcher serves.
func (f *Fetcher) Store() domain.Store { return f.store }

// Fetch returns the fixture quote for the title, honoring ctx cancellation.
func (f *Fetcher) Fetch(ctx context.Context, titleName string) (*domain.RawQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fetch.Failure(f.store, err)
	}
	if f.err != nil {
		return nil, fetch.Failure(f.store, f.err)
	}

	q, ok := f.quotes[idhash.NormalizeName(titleName)]
	if !ok {
		return nil, fmt.Errorf("%w: %q at %s", fetch.ErrNoListing, titleName, f.store)
	}
	quoteCopy := *q
	return &quoteCopy, nil
}

var _ fetch.Fetcher = (*Fetcher)(nil)

// fixtureFile is the on-disk shape consumed by LoadFixtures.
type fixtureFile struct {
	Quotes []fixtureQuote `json:"quotes"`
}

type fixtureQuote struct {
	Title           string  `json:"title"`
	Store           string  `json:"store"`
	PriceAmount     float64 `json:"price_amount"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountPercent float64 `json:"discount_percent"`
	ObservedAt      int64   `json:"observed_at"`
	URL             string  `json:"url"`
}

// LoadFixtures reads a JSON fixture file and returns one stub fetcher per
// store present in it.
func LoadFixtures(path string) ([]fetch.Fetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	byStore := make(map[domain.Store][]*domain.RawQuote)
	for _, fq := range file.Quotes {
		store := domain.Store(fq.Store)
		if !domain.ValidStore(store) {
			return nil, fmt.Errorf("fixture quote %q: unknown store %q", fq.Title, fq.Store)
		}
		byStore[store] = append(byStore[store], &domain.RawQuote{
			Title:           fq.Title,
			Store:           store,
			PriceAmount:     fq.PriceAmount,
			OriginalPrice:   fq.OriginalPrice,
			DiscountPercent: fq.DiscountPercent,
			ObservedAt:      fq.ObservedAt,
			URL:             fq.URL,
		})
	}

	fetchers := make([]fetch.Fetcher, 0, len(byStore))
	for _, store := range domain.AllStores() {
		if quotes, ok := byStore[store]; ok {
			fetchers = append(fetchers, NewFetcher(store, quotes))
		}
	}
	return fetchers, nil
}
