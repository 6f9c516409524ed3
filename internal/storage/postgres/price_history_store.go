package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using PostgreSQL.
// Appends for one (title, store) are serialized through a row lock on the
// price_history_minimums row, which doubles as the cached minimum.
type PriceHistoryStore struct {
	pool *Pool
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(pool *Pool) *PriceHistoryStore {
	return &PriceHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Append records one quote and updates the cached minimum in the same
// transaction. Returns ErrInvalidQuote for a negative price or an out-of-order
// observation, ErrDuplicateKey for an equal observation instant.
func (s *PriceHistoryStore) Append(ctx context.Context, q *domain.PriceQuote) error {
	if q == nil || q.TitleID == "" || !domain.ValidStore(q.Store) {
		return storage.ErrInvalidInput
	}
	if q.PriceAmount < 0 {
		return fmt.Errorf("%w: negative price %v", storage.ErrInvalidQuote, q.PriceAmount)
	}
	if q.ObservedAt <= 0 {
		return fmt.Errorf("%w: missing observation time", storage.ErrInvalidQuote)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	// Establish the lock row before the ordering check, so two concurrent
	// first appends for the same series serialize too: the second insert
	// blocks until the first transaction commits, and its FOR UPDATE then
	// sees the committed head. last_observed_at = 0 marks a row created by
	// this append (observed instants are always positive).
	_, err = tx.Exec(ctx, `
		INSERT INTO price_history_minimums (title_id, store, min_price, last_observed_at)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (title_id, store) DO NOTHING
	`, q.TitleID, string(q.Store), q.PriceAmount)
	if err != nil {
		return fmt.Errorf("create series lock: %w", err)
	}

	var lastObservedAt int64
	err = tx.QueryRow(ctx, `
		SELECT last_observed_at
		FROM price_history_minimums
		WHERE title_id = $1 AND store = $2
		FOR UPDATE
	`, q.TitleID, string(q.Store)).Scan(&lastObservedAt)
	if err != nil {
		return fmt.Errorf("lock series: %w", err)
	}
	if lastObservedAt > 0 {
		if q.ObservedAt < lastObservedAt {
			return fmt.Errorf("%w: observed_at %d precedes last %d",
				storage.ErrInvalidQuote, q.ObservedAt, lastObservedAt)
		}
		if q.ObservedAt == lastObservedAt {
			return storage.ErrDuplicateKey
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO price_history (title_id, store, price_amount, discount_percent, observed_at, url)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, q.TitleID, string(q.Store), q.PriceAmount, q.DiscountPercent, q.ObservedAt, q.URL)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert quote: %w", err)
	}

	// The row is locked, so a plain update suffices.
	_, err = tx.Exec(ctx, `
		UPDATE price_history_minimums
		SET min_price = LEAST(min_price, $3), last_observed_at = $4
		WHERE title_id = $1 AND store = $2
	`, q.TitleID, string(q.Store), q.PriceAmount, q.ObservedAt)
	if err != nil {
		return fmt.Errorf("update minimum: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// HistoricalMinimum returns the lowest price ever recorded for (title, store).
func (s *PriceHistoryStore) HistoricalMinimum(ctx context.Context, titleID string, store domain.Store) (float64, error) {
	var min float64
	err := s.pool.QueryRow(ctx, `
		SELECT min_price
		FROM price_history_minimums
		WHERE title_id = $1 AND store = $2
	`, titleID, string(store)).Scan(&min)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get minimum: %w", err)
	}
	return min, nil
}

// Latest returns the most recent quote for (title, store).
func (s *PriceHistoryStore) Latest(ctx context.Context, titleID string, store domain.Store) (*domain.PriceQuote, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT title_id, store, price_amount, discount_percent, observed_at, url
		FROM price_history
		WHERE title_id = $1 AND store = $2
		ORDER BY observed_at DESC
		LIMIT 1
	`, titleID, string(store))

	q, err := scanQuote(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest quote: %w", err)
	}
	return q, nil
}

// History retrieves all quotes for (title, store), ordered by observed_at ASC.
func (s *PriceHistoryStore) History(ctx context.Context, titleID string, store domain.Store) ([]*domain.PriceQuote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT title_id, store, price_amount, discount_percent, observed_at, url
		FROM price_history
		WHERE title_id = $1 AND store = $2
		ORDER BY observed_at ASC
	`, titleID, string(store))
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// scanQuote scans a single row into a PriceQuote.
func scanQuote(row pgx.Row) (*domain.PriceQuote, error) {
	var q domain.PriceQuote
	var storeStr string

	err := row.Scan(
		&q.TitleID,
		&storeStr,
		&q.PriceAmount,
		&q.DiscountPercent,
		&q.ObservedAt,
		&q.URL,
	)
	if err != nil {
		return nil, err
	}

	q.Store = domain.Store(storeStr)
	return &q, nil
}

// scanQuotes scans multiple rows into a slice of PriceQuote.
func scanQuotes(rows pgx.Rows) ([]*domain.PriceQuote, error) {
	var quotes []*domain.PriceQuote

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote row: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote rows: %w", err)
	}
	return quotes, nil
}
