package clickhouse

import (
	"context"
	"fmt"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// QuoteArchiveStore implements storage.QuoteArchiveStore using ClickHouse.
// MergeTree does not enforce uniqueness at insert time, so duplicates are
// rejected by explicit checks before the batch is sent.
type QuoteArchiveStore struct {
	conn *Conn
}

// NewQuoteArchiveStore creates a new QuoteArchiveStore.
func NewQuoteArchiveStore(conn *Conn) *QuoteArchiveStore {
	return &QuoteArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.QuoteArchiveStore = (*QuoteArchiveStore)(nil)

// InsertBulk adds multiple quotes. Fails the entire batch on a duplicate
// (title_id, store, observed_at).
func (s *QuoteArchiveStore) InsertBulk(ctx context.Context, quotes []*domain.PriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		titleID    string
		store      domain.Store
		observedAt int64
	}
	seen := make(map[key]struct{})
	for _, q := range quotes {
		k := key{q.TitleID, q.Store, q.ObservedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, q := range quotes {
		exists, err := s.exists(ctx, q.TitleID, q.Store, q.ObservedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO quote_archive (
			title_id, store, price_amount, discount_percent, observed_at, url
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, q := range quotes {
		err = batch.Append(
			q.TitleID, string(q.Store), q.PriceAmount,
			q.DiscountPercent, uint64(q.ObservedAt), q.URL,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTitleID retrieves all archived quotes for a title, ordered by
// observed_at ASC.
func (s *QuoteArchiveStore) GetByTitleID(ctx context.Context, titleID string) ([]*domain.PriceQuote, error) {
	query := `
		SELECT title_id, store, price_amount, discount_percent, observed_at, url
		FROM quote_archive
		WHERE title_id = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, titleID)
	if err != nil {
		return nil, fmt.Errorf("query by title id: %w", err)
	}
	defer rows.Close()

	return scanArchiveQuotes(rows)
}

// GetByTimeRange retrieves archived quotes for a title within [start, end]
// (inclusive).
func (s *QuoteArchiveStore) GetByTimeRange(ctx context.Context, titleID string, start, end int64) ([]*domain.PriceQuote, error) {
	query := `
		SELECT title_id, store, price_amount, discount_percent, observed_at, url
		FROM quote_archive
		WHERE title_id = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, titleID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanArchiveQuotes(rows)
}

// exists checks if a quote with the given key exists.
func (s *QuoteArchiveStore) exists(ctx context.Context, titleID string, store domain.Store, observedAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM quote_archive
		WHERE title_id = ? AND store = ? AND observed_at = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, titleID, string(store), uint64(observedAt)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver rows both Query results satisfy.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanArchiveQuotes scans rows into a slice of PriceQuote.
func scanArchiveQuotes(rows chRows) ([]*domain.PriceQuote, error) {
	var quotes []*domain.PriceQuote

	for rows.Next() {
		var q domain.PriceQuote
		var storeStr string
		var observedAt uint64

		err := rows.Scan(
			&q.TitleID,
			&storeStr,
			&q.PriceAmount,
			&q.DiscountPercent,
			&observedAt,
			&q.URL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}

		q.Store = domain.Store(storeStr)
		q.ObservedAt = int64(observedAt)
		quotes = append(quotes, &q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	return quotes, nil
}
