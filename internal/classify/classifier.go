// Package classify applies the unmissable-deal rule to a quote given its
// price history.
package classify

import "game-deal-tracker/internal/domain"

// Thresholds holds the classification constants. They are global
// configuration defaults, not per-entry settings.
type Thresholds struct {
	// MinDiscountPercent is the source-reported discount at which a deal is
	// unmissable regardless of history.
	MinDiscountPercent float64

	// PriceTolerancePercent is how far above the historical minimum a price
	// may sit and still count as "near" it.
	PriceTolerancePercent float64
}

// DefaultThresholds returns the business defaults: 75% discount, 5% tolerance.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDiscountPercent:    75,
		PriceTolerancePercent: 5,
	}
}

// Classify is a pure function over (quote, historicalMin). Rules in
// precedence order:
//
//  1. discount >= MinDiscountPercent           -> HIGH_DISCOUNT
//  2. price <= min * (1 + tolerance/100)       -> NEAR_HISTORICAL_MIN
//  3. otherwise                                -> NONE
//
// Rule 1 uses the cheap source-reported signal and short-circuits; rule 2
// requires the history lookup the caller already paid for. A nil
// historicalMin (first-ever observation) skips rule 2 entirely: a title's
// first observed price is never "the minimum by default".
func Classify(q *domain.PriceQuote, historicalMin *float64, th Thresholds) domain.DealVerdict {
	verdict := domain.DealVerdict{
		Reason:            domain.ReasonNone,
		HistoricalMinimum: historicalMin,
	}

	if q.DiscountPercent >= th.MinDiscountPercent {
		verdict.IsUnmissable = true
		verdict.Reason = domain.ReasonHighDiscount
		return verdict
	}

	if historicalMin != nil && q.PriceAmount <= *historicalMin*(1+th.PriceTolerancePercent/100) {
		verdict.IsUnmissable = true
		verdict.Reason = domain.ReasonNearHistoricalMin
		return verdict
	}

	return verdict
}
