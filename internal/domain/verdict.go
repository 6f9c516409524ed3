package domain

// VerdictReason explains why a quote was (or was not) flagged unmissable.
type VerdictReason string

const (
	ReasonHighDiscount      VerdictReason = "HIGH_DISCOUNT"
	ReasonNearHistoricalMin VerdictReason = "NEAR_HISTORICAL_MIN"
	ReasonNone              VerdictReason = "NONE"
)

// DealVerdict is the classifier's output for one quote.
// Ephemeral: consumed by the evaluator and notifier, never persisted.
type DealVerdict struct {
	IsUnmissable      bool
	Reason            VerdictReason
	HistoricalMinimum *float64 // minimum at evaluation time, nil if no history existed
}
