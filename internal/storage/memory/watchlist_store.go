package memory

import (
	"context"
	"sort"
	"sync"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// WatchlistStore is an in-memory implementation of storage.WatchlistStore.
type WatchlistStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WatchlistEntry // keyed by entry_id
}

// NewWatchlistStore creates a new in-memory watchlist store.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		data: make(map[string]*domain.WatchlistEntry),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *WatchlistStore) Insert(_ context.Context, e *domain.WatchlistEntry) error {
	if e == nil || e.EntryID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EntryID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[e.EntryID] = copyEntry(e)
	return nil
}

// GetAll retrieves every entry, ordered by created_at ASC.
func (s *WatchlistStore) GetAll(_ context.Context) ([]*domain.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WatchlistEntry, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, copyEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].EntryID < result[j].EntryID
	})

	return result, nil
}

// Remove deletes an entry. Returns ErrNotFound if not exists.
func (s *WatchlistStore) Remove(_ context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[entryID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, entryID)
	return nil
}

// MarkChecked updates last_checked_at.
func (s *WatchlistStore) MarkChecked(_ context.Context, entryID string, checkedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[entryID]
	if !exists {
		return storage.ErrNotFound
	}
	e.LastCheckedAt = checkedAt
	return nil
}

// MarkNotified updates last_notified_at.
func (s *WatchlistStore) MarkNotified(_ context.Context, entryID string, notifiedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[entryID]
	if !exists {
		return storage.ErrNotFound
	}
	e.LastNotifiedAt = &notifiedAt
	return nil
}

func copyEntry(e *domain.WatchlistEntry) *domain.WatchlistEntry {
	entryCopy := *e
	if e.TargetPrice != nil {
		v := *e.TargetPrice
		entryCopy.TargetPrice = &v
	}
	if e.LastNotifiedAt != nil {
		v := *e.LastNotifiedAt
		entryCopy.LastNotifiedAt = &v
	}
	return &entryCopy
}

// Verify interface compliance at compile time.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)
