package domain

// RawQuote is one price observation as reported by a storefront fetcher,
// before title identity has been resolved.
type RawQuote struct {
	Title           string  // the source's own name for the game
	Store           Store   // storefront that reported the price
	PriceAmount     float64 // current price, configured currency
	OriginalPrice   float64 // pre-discount price, 0 if unknown
	DiscountPercent float64 // 0-100, as reported by the source
	ObservedAt      int64   // Unix timestamp in milliseconds
	URL             string  // deal page
}

// PriceQuote is a normalized price observation bound to a canonical title.
// Corresponds to price_history rows in PostgreSQL. Immutable once appended.
type PriceQuote struct {
	TitleID         string
	Store           Store
	PriceAmount     float64 // non-negative, configured currency
	DiscountPercent float64 // 0-100
	ObservedAt      int64   // Unix timestamp in milliseconds
	URL             string
}
