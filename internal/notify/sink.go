// Package notify carries deal notifications out of the evaluator. Delivery
// is fire-and-forget: the evaluator logs a sink error but never retries and
// never lets it affect the cycle.
package notify

import (
	"context"
	"fmt"

	"game-deal-tracker/internal/domain"
)

// Trigger says why a notification fired.
type Trigger string

const (
	// TriggerTargetPrice: the quote met the entry's stored target price.
	TriggerTargetPrice Trigger = "TARGET_PRICE"
	// TriggerUnmissable: the classifier flagged the deal unmissable.
	TriggerUnmissable Trigger = "UNMISSABLE"
)

// Event is one notification payload: the winning quote for an entry in one
// cycle, with the verdict and target context that justified it.
type Event struct {
	Title       *domain.Title
	Quote       *domain.PriceQuote
	Verdict     domain.DealVerdict
	Trigger     Trigger
	TargetPrice *float64 // set when Trigger == TriggerTargetPrice
}

// Sink delivers notification events.
type Sink interface {
	Notify(ctx context.Context, e *Event) error
}

// FormatMessage renders a human-readable line for an event, shared by the
// log and webhook sinks.
func FormatMessage(e *Event) string {
	msg := fmt.Sprintf("%s at %s: %.2f (%.0f%% off)",
		e.Title.DisplayName, e.Quote.Store, e.Quote.PriceAmount, e.Quote.DiscountPercent)

	switch e.Trigger {
	case TriggerTargetPrice:
		if e.TargetPrice != nil {
			msg += fmt.Sprintf(" - target price %.2f met", *e.TargetPrice)
		}
	case TriggerUnmissable:
		switch e.Verdict.Reason {
		case domain.ReasonHighDiscount:
			msg += " - unmissable: high discount"
		case domain.ReasonNearHistoricalMin:
			if e.Verdict.HistoricalMinimum != nil {
				msg += fmt.Sprintf(" - unmissable: near historical minimum %.2f", *e.Verdict.HistoricalMinimum)
			} else {
				msg += " - unmissable: near historical minimum"
			}
		}
	}
	if e.Quote.URL != "" {
		msg += " " + e.Quote.URL
	}
	return msg
}
