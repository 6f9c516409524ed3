// Package normalize maps raw per-source price quotes onto canonical title
// identities. Resolution over the alias index is a pure read-only mapping;
// what to do with an unresolved or ambiguous name is the caller's decision.
package normalize

import (
	"context"
	"errors"
	"fmt"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/idhash"
	"game-deal-tracker/internal/storage"
)

var (
	// ErrUnresolvedTitle is returned when no existing title matches a source
	// name by exact alias and fuzzy matching stays below the threshold.
	ErrUnresolvedTitle = errors.New("unresolved title")

	// ErrAmbiguousTitle is returned when several titles match above the
	// threshold. The Resolution carries the candidate set.
	ErrAmbiguousTitle = errors.New("ambiguous title")
)

// Normalizer resolves raw quotes against the current title alias index.
type Normalizer struct {
	titles    storage.TitleStore
	threshold float64 // minimum fuzzy similarity for a match
}

// NewNormalizer creates a normalizer with the given match threshold.
func NewNormalizer(titles storage.TitleStore, threshold float64) *Normalizer {
	return &Normalizer{titles: titles, threshold: threshold}
}

// Normalize maps a raw quote to a canonical PriceQuote. The Resolution is
// returned alongside the error so callers can act on NoMatch (create a title,
// discard) or Ambiguous (surface candidates) without re-resolving.
func (n *Normalizer) Normalize(ctx context.Context, raw *domain.RawQuote) (*domain.PriceQuote, Resolution, error) {
	if err := validateRaw(raw); err != nil {
		return nil, Resolution{State: StateNoMatch}, err
	}

	titles, err := n.titles.GetAll(ctx)
	if err != nil {
		return nil, Resolution{State: StateNoMatch}, fmt.Errorf("load titles: %w", err)
	}

	res := BuildIndex(titles).Resolve(raw.Title, n.threshold)
	switch res.State {
	case StateMatched:
		return buildQuote(res.TitleID, raw), res, nil
	case StateAmbiguous:
		return nil, res, fmt.Errorf("%w: %q has %d candidates", ErrAmbiguousTitle, raw.Title, len(res.Candidates))
	default:
		return nil, res, fmt.Errorf("%w: %q", ErrUnresolvedTitle, raw.Title)
	}
}

// NormalizeFor validates a raw quote against one known title, for callers
// that already hold the identity (the watchlist evaluator). The source name
// must match one of the title's aliases exactly or above the fuzzy threshold;
// otherwise the quote is rejected with ErrUnresolvedTitle.
func (n *Normalizer) NormalizeFor(ctx context.Context, titleID string, raw *domain.RawQuote) (*domain.PriceQuote, error) {
	if err := validateRaw(raw); err != nil {
		return nil, err
	}

	title, err := n.titles.GetByID(ctx, titleID)
	if err != nil {
		return nil, fmt.Errorf("load title %s: %w", titleID, err)
	}

	norm := idhash.NormalizeName(raw.Title)
	for _, alias := range title.Aliases {
		aliasNorm := idhash.NormalizeName(alias)
		if aliasNorm == norm || Similarity(norm, aliasNorm) >= n.threshold {
			return buildQuote(titleID, raw), nil
		}
	}
	return nil, fmt.Errorf("%w: %q does not match title %s", ErrUnresolvedTitle, raw.Title, titleID)
}

// validateRaw rejects malformed observations before any identity work.
func validateRaw(raw *domain.RawQuote) error {
	if raw == nil || raw.Title == "" {
		return storage.ErrInvalidInput
	}
	if !domain.ValidStore(raw.Store) {
		return fmt.Errorf("%w: unknown store %q", storage.ErrInvalidQuote, raw.Store)
	}
	if raw.PriceAmount < 0 {
		return fmt.Errorf("%w: negative price %v", storage.ErrInvalidQuote, raw.PriceAmount)
	}
	if raw.DiscountPercent < 0 || raw.DiscountPercent > 100 {
		return fmt.Errorf("%w: discount %v out of range", storage.ErrInvalidQuote, raw.DiscountPercent)
	}
	if raw.ObservedAt <= 0 {
		return fmt.Errorf("%w: missing observation time", storage.ErrInvalidQuote)
	}
	return nil
}

func buildQuote(titleID string, raw *domain.RawQuote) *domain.PriceQuote {
	return &domain.PriceQuote{
		TitleID:         titleID,
		Store:           raw.Store,
		PriceAmount:     raw.PriceAmount,
		DiscountPercent: raw.DiscountPercent,
		ObservedAt:      raw.ObservedAt,
		URL:             raw.URL,
	}
}
