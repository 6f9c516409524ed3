package storage

import (
	"context"

	"game-deal-tracker/internal/domain"
)

// TitleStore provides access to canonical title identities and their aliases.
type TitleStore interface {
	// Insert adds a new title with its initial alias set.
	// Returns ErrDuplicateKey if title_id or any alias already exists.
	Insert(ctx context.Context, t *domain.Title) error

	// GetByID retrieves a title by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, titleID string) (*domain.Title, error)

	// GetAll retrieves every title, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.Title, error)

	// AddAlias binds an additional alias to a title. No-op if the alias is
	// already bound to that title; returns ErrDuplicateKey if it is bound to
	// a different title (the caller resolves the collision by merging).
	AddAlias(ctx context.Context, titleID, alias string) error

	// Merge moves every alias of srcID onto dstID. The source title record is
	// retained (titles are never deleted) but no longer owns any alias.
	Merge(ctx context.Context, dstID, srcID string) error
}

// PriceHistoryStore provides the append-only (title, store) price time series
// with its cached historical minimum.
type PriceHistoryStore interface {
	// Append records one quote. Returns ErrInvalidQuote if price_amount < 0
	// or observed_at precedes the last recorded observation for that
	// (title, store); returns ErrDuplicateKey on an equal observed_at.
	// The cached minimum is updated in the same logical step, and appends for
	// the same (title, store) are serialized.
	Append(ctx context.Context, q *domain.PriceQuote) error

	// HistoricalMinimum returns the lowest price ever recorded for
	// (title, store). Returns ErrNotFound when no quotes exist yet.
	HistoricalMinimum(ctx context.Context, titleID string, store domain.Store) (float64, error)

	// Latest returns the most recent quote for (title, store).
	// Returns ErrNotFound when no quotes exist yet.
	Latest(ctx context.Context, titleID string, store domain.Store) (*domain.PriceQuote, error)

	// History retrieves all quotes for (title, store), ordered by observed_at ASC.
	History(ctx context.Context, titleID string, store domain.Store) ([]*domain.PriceQuote, error)
}

// WatchlistStore provides access to tracked titles. Entry lifecycle is owned
// by the user-facing layer; the evaluator only reads and timestamps entries.
type WatchlistStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
	Insert(ctx context.Context, e *domain.WatchlistEntry) error

	// GetAll retrieves every entry, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.WatchlistEntry, error)

	// Remove deletes an entry. Returns ErrNotFound if not exists.
	Remove(ctx context.Context, entryID string) error

	// MarkChecked updates last_checked_at. Returns ErrNotFound if not exists.
	MarkChecked(ctx context.Context, entryID string, checkedAt int64) error

	// MarkNotified updates last_notified_at. Returns ErrNotFound if not exists.
	MarkNotified(ctx context.Context, entryID string, notifiedAt int64) error
}

// QuoteArchiveStore is the analytic archive of observed quotes backing
// dashboard-style queries. Unlike PriceHistoryStore it carries no ordering
// invariant; it is bulk-loaded and queried by time range.
type QuoteArchiveStore interface {
	// InsertBulk adds multiple quotes. Fails the entire batch on a duplicate
	// (title_id, store, observed_at).
	InsertBulk(ctx context.Context, quotes []*domain.PriceQuote) error

	// GetByTitleID retrieves all archived quotes for a title, ordered by
	// observed_at ASC.
	GetByTitleID(ctx context.Context, titleID string) ([]*domain.PriceQuote, error)

	// GetByTimeRange retrieves archived quotes for a title within
	// [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, titleID string, start, end int64) ([]*domain.PriceQuote, error)
}
