package postgres

import (
	"context"
	"fmt"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// WatchlistStore implements storage.WatchlistStore using PostgreSQL.
type WatchlistStore struct {
	pool *Pool
}

// NewWatchlistStore creates a new WatchlistStore.
func NewWatchlistStore(pool *Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *WatchlistStore) Insert(ctx context.Context, e *domain.WatchlistEntry) error {
	if e == nil || e.EntryID == "" || e.TitleID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO watchlist_entries (
			entry_id, title_id, target_price, created_at, last_checked_at, last_notified_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, e.EntryID, e.TitleID, e.TargetPrice, e.CreatedAt, e.LastCheckedAt, e.LastNotifiedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert watchlist entry: %w", err)
	}
	return nil
}

// GetAll retrieves every entry, ordered by created_at ASC.
func (s *WatchlistStore) GetAll(ctx context.Context) ([]*domain.WatchlistEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entry_id, title_id, target_price, created_at, last_checked_at, last_notified_at
		FROM watchlist_entries
		ORDER BY created_at ASC, entry_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get watchlist entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		err := rows.Scan(
			&e.EntryID,
			&e.TitleID,
			&e.TargetPrice,
			&e.CreatedAt,
			&e.LastCheckedAt,
			&e.LastNotifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist rows: %w", err)
	}
	return entries, nil
}

// Remove deletes an entry. Returns ErrNotFound if not exists.
func (s *WatchlistStore) Remove(ctx context.Context, entryID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM watchlist_entries WHERE entry_id = $1
	`, entryID)
	if err != nil {
		return fmt.Errorf("remove watchlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkChecked updates last_checked_at. Returns ErrNotFound if not exists.
func (s *WatchlistStore) MarkChecked(ctx context.Context, entryID string, checkedAt int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE watchlist_entries SET last_checked_at = $2 WHERE entry_id = $1
	`, entryID, checkedAt)
	if err != nil {
		return fmt.Errorf("mark checked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkNotified updates last_notified_at. Returns ErrNotFound if not exists.
func (s *WatchlistStore) MarkNotified(ctx context.Context, entryID string, notifiedAt int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE watchlist_entries SET last_notified_at = $2 WHERE entry_id = $1
	`, entryID, notifiedAt)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
