package memory

import (
	"context"
	"sort"
	"sync"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// TitleStore is an in-memory implementation of storage.TitleStore.
type TitleStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.Title // keyed by title_id
	byAlias map[string]string        // alias -> title_id
}

// NewTitleStore creates a new in-memory title store.
func NewTitleStore() *TitleStore {
	return &TitleStore{
		data:    make(map[string]*domain.Title),
		byAlias: make(map[string]string),
	}
}

// Insert adds a new title with its initial alias set.
func (s *TitleStore) Insert(_ context.Context, t *domain.Title) error {
	if t == nil || t.TitleID == "" || t.DisplayName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TitleID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, a := range t.Aliases {
		if _, exists := s.byAlias[a]; exists {
			return storage.ErrDuplicateKey
		}
	}

	titleCopy := *t
	titleCopy.Aliases = append([]string(nil), t.Aliases...)
	s.data[t.TitleID] = &titleCopy
	for _, a := range titleCopy.Aliases {
		s.byAlias[a] = t.TitleID
	}
	return nil
}

// GetByID retrieves a title by its ID. Returns ErrNotFound if not exists.
func (s *TitleStore) GetByID(_ context.Context, titleID string) (*domain.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[titleID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyTitle(t), nil
}

// GetAll retrieves every title, ordered by created_at ASC.
func (s *TitleStore) GetAll(_ context.Context) ([]*domain.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Title, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, copyTitle(t))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].TitleID < result[j].TitleID
	})

	return result, nil
}

// AddAlias binds an additional alias to a title.
func (s *TitleStore) AddAlias(_ context.Context, titleID, alias string) error {
	if titleID == "" || alias == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[titleID]
	if !exists {
		return storage.ErrNotFound
	}
	if owner, bound := s.byAlias[alias]; bound {
		if owner == titleID {
			return nil
		}
		return storage.ErrDuplicateKey
	}

	t.Aliases = append(t.Aliases, alias)
	s.byAlias[alias] = titleID
	return nil
}

// Merge moves every alias of srcID onto dstID.
func (s *TitleStore) Merge(_ context.Context, dstID, srcID string) error {
	if dstID == "" || srcID == "" || dstID == srcID {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dst, exists := s.data[dstID]
	if !exists {
		return storage.ErrNotFound
	}
	src, exists := s.data[srcID]
	if !exists {
		return storage.ErrNotFound
	}

	for _, a := range src.Aliases {
		if s.byAlias[a] != dstID {
			dst.Aliases = append(dst.Aliases, a)
			s.byAlias[a] = dstID
		}
	}
	src.Aliases = nil
	return nil
}

func copyTitle(t *domain.Title) *domain.Title {
	titleCopy := *t
	titleCopy.Aliases = append([]string(nil), t.Aliases...)
	return &titleCopy
}

// Verify interface compliance at compile time.
var _ storage.TitleStore = (*TitleStore)(nil)
