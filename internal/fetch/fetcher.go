// Package fetch defines the boundary contract for obtaining raw price quotes
// from storefronts. Implementations own all transport concerns (HTTP, retries,
// authentication, parsing); the core only sees RawQuote or an error.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"game-deal-tracker/internal/domain"
)

// ErrFetch marks an external source as unreachable, rate-limited or
// malformed for this request. It is isolated per store: one store's failure
// never aborts an entry or a cycle.
var ErrFetch = errors.New("fetch failed")

// ErrNoListing is returned when the source answered but does not carry the
// requested title. Treated like a fetch failure by the evaluator, minus the
// error logging.
var ErrNoListing = errors.New("no listing")

// Fetcher obtains the current quote for a title from one storefront.
type Fetcher interface {
	// Store identifies the storefront this fetcher talks to.
	Store() domain.Store

	// Fetch returns the current raw quote for a title name. The context
	// carries the per-store timeout; exceeding it counts as a fetch failure.
	Fetch(ctx context.Context, titleName string) (*domain.RawQuote, error)
}

// Failure wraps a store error for reporting.
func Failure(store domain.Store, err error) error {
	return fmt.Errorf("%w: store %s: %v", ErrFetch, store, err)
}
