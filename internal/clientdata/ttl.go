package clientdata

import "time"

// TTL constants per data type, added to time.Now() to compute expires_at.
const (
	// Intraday prices move; keep them short
	TTLQuote   = 5 * time.Minute
	TTLListing = 5 * time.Minute

	// Daily bars only change once per session
	TTLPriceHistory = 6 * time.Hour

	// An abandoned order draft is dropped after a week
	TTLOrderDraft = 7 * 24 * time.Hour
)
