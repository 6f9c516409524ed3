package memory

import (
	"context"
	"sync"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
// Appends are serialized per (title, store) series so the chronological
// invariant and the cached minimum stay consistent under concurrent callers.
type PriceHistoryStore struct {
	mu   sync.Mutex
	data map[histKey]*series
}

type histKey struct {
	titleID string
	store   domain.Store
}

// series holds one (title, store) time series with its cached minimum.
// series.mu is the per-key critical section for appends and reads.
type series struct {
	mu      sync.Mutex
	quotes  []*domain.PriceQuote // ordered by observed_at ASC
	minimum float64
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{
		data: make(map[histKey]*series),
	}
}

// Append records one quote, updating the cached minimum in the same step.
func (s *PriceHistoryStore) Append(_ context.Context, q *domain.PriceQuote) error {
	if q == nil || q.TitleID == "" || !domain.ValidStore(q.Store) {
		return storage.ErrInvalidInput
	}
	if q.PriceAmount < 0 {
		return storage.ErrInvalidQuote
	}

	ser := s.seriesFor(histKey{q.TitleID, q.Store})

	ser.mu.Lock()
	defer ser.mu.Unlock()

	if n := len(ser.quotes); n > 0 {
		last := ser.quotes[n-1].ObservedAt
		if q.ObservedAt < last {
			return storage.ErrInvalidQuote
		}
		if q.ObservedAt == last {
			return storage.ErrDuplicateKey
		}
	}

	quoteCopy := *q
	ser.quotes = append(ser.quotes, &quoteCopy)
	if len(ser.quotes) == 1 || q.PriceAmount < ser.minimum {
		ser.minimum = q.PriceAmount
	}
	return nil
}

// HistoricalMinimum returns the lowest price ever recorded for (title, store).
func (s *PriceHistoryStore) HistoricalMinimum(_ context.Context, titleID string, store domain.Store) (float64, error) {
	ser := s.seriesFor(histKey{titleID, store})

	ser.mu.Lock()
	defer ser.mu.Unlock()

	if len(ser.quotes) == 0 {
		return 0, storage.ErrNotFound
	}
	return ser.minimum, nil
}

// Latest returns the most recent quote for (title, store).
func (s *PriceHistoryStore) Latest(_ context.Context, titleID string, store domain.Store) (*domain.PriceQuote, error) {
	ser := s.seriesFor(histKey{titleID, store})

	ser.mu.Lock()
	defer ser.mu.Unlock()

	if len(ser.quotes) == 0 {
		return nil, storage.ErrNotFound
	}
	quoteCopy := *ser.quotes[len(ser.quotes)-1]
	return &quoteCopy, nil
}

// History retrieves all quotes for (title, store), ordered by observed_at ASC.
func (s *PriceHistoryStore) History(_ context.Context, titleID string, store domain.Store) ([]*domain.PriceQuote, error) {
	ser := s.seriesFor(histKey{titleID, store})

	ser.mu.Lock()
	defer ser.mu.Unlock()

	result := make([]*domain.PriceQuote, 0, len(ser.quotes))
	for _, q := range ser.quotes {
		quoteCopy := *q
		result = append(result, &quoteCopy)
	}
	return result, nil
}

// seriesFor returns the series for key, creating it if absent.
func (s *PriceHistoryStore) seriesFor(key histKey) *series {
	s.mu.Lock()
	defer s.mu.Unlock()

	ser, exists := s.data[key]
	if !exists {
		ser = &series{}
		s.data[key] = ser
	}
	return ser
}

// Verify interface compliance at compile time.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
