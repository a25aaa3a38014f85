package clientdata

import "time"

// TTL constants added to time.Now() when storing to calculate expires_at.
const (
	// TTLQuote is the default freshness window for cached quotes
	TTLQuote = time.Minute

	// StaleQuoteMaxAge is the default age limit for quotes served while the API fails
	StaleQuoteMaxAge = 5 * time.Minute

	// StaleQuoteRetention is how long an expired quote is kept before the cleanup job removes it
	StaleQuoteRetention = 24 * time.Hour
)
