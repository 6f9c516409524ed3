package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// QuoteArchiveStore is an in-memory implementation of storage.QuoteArchiveStore.
type QuoteArchiveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceQuote // keyed by (title_id, store, observed_at)
}

// NewQuoteArchiveStore creates a new in-memory quote archive store.
func NewQuoteArchiveStore() *QuoteArchiveStore {
	return &QuoteArchiveStore{
		data: make(map[string]*domain.PriceQuote),
	}
}

// archiveKey generates a unique key for an archived quote.
func archiveKey(titleID string, store domain.Store, observedAt int64) string {
	return fmt.Sprintf("%s|%s|%d", titleID, store, observedAt)
}

// InsertBulk adds multiple quotes. Fails entire batch on duplicate.
func (s *QuoteArchiveStore) InsertBulk(_ context.Context, quotes []*domain.PriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(quotes))

	for _, q := range quotes {
		if q == nil || q.TitleID == "" {
			return storage.ErrInvalidInput
		}
		key := archiveKey(q.TitleID, q.Store, q.ObservedAt)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, q := range quotes {
		key := archiveKey(q.TitleID, q.Store, q.ObservedAt)
		quoteCopy := *q
		s.data[key] = &quoteCopy
	}

	return nil
}

// GetByTitleID retrieves all archived quotes for a title, ordered by observed_at ASC.
func (s *QuoteArchiveStore) GetByTitleID(_ context.Context, titleID string) ([]*domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceQuote
	for _, q := range s.data {
		if q.TitleID == titleID {
			quoteCopy := *q
			result = append(result, &quoteCopy)
		}
	}

	sortQuotes(result)
	return result, nil
}

// GetByTimeRange retrieves archived quotes for a title within [start, end] (inclusive).
func (s *QuoteArchiveStore) GetByTimeRange(_ context.Context, titleID string, start, end int64) ([]*domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceQuote
	for _, q := range s.data {
		if q.TitleID == titleID && q.ObservedAt >= start && q.ObservedAt <= end {
			quoteCopy := *q
			result = append(result, &quoteCopy)
		}
	}

	sortQuotes(result)
	return result, nil
}

func sortQuotes(quotes []*domain.PriceQuote) {
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].ObservedAt != quotes[j].ObservedAt {
			return quotes[i].ObservedAt < quotes[j].ObservedAt
		}
		return quotes[i].Store < quotes[j].Store
	})
}

// Verify interface compliance at compile time.
var _ storage.QuoteArchiveStore = (*QuoteArchiveStore)(nil)
