// Package quotes provides stock quote fetching and caching functionality.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/paperledger/internal/clientdata"
	"github.com/aristath/paperledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned by Lookup when no API base URL is set
var ErrNotConfigured = errors.New("quote API is not configured")

// Compile-time check that Client implements domain.QuoteProvider
var _ domain.QuoteProvider = (*Client)(nil)

// Client for an IEX-style quote API (GET {base}/stock/{symbol}/quote?token=...)
type Client struct {
	baseURL   string
	token     string
	client    *http.Client
	cacheTTL  time.Duration
	staleAge  time.Duration // max age of a cached quote served while the API fails; 0 disables
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	now       func() time.Time
}

// NewClient creates a new quote API client.
// cacheRepo is optional - if nil, caching is disabled.
// staleMaxAge bounds the age of a quote served by the stale fallback; 0 disables it.
func NewClient(baseURL, token string, timeout time.Duration, cacheRepo *clientdata.Repository, cacheTTL, staleMaxAge time.Duration, log zerolog.Logger) *Client {
	if cacheTTL <= 0 {
		cacheTTL = clientdata.TTLQuote
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		client:    &http.Client{Timeout: timeout},
		cacheTTL:  cacheTTL,
		staleAge:  staleMaxAge,
		log:       log.With().Str("client", "quotes").Logger(),
		cacheRepo: cacheRepo,
		now:       time.Now,
	}
}

// apiQuote is the subset of the API response we use
type apiQuote struct {
	Symbol      string              `json:"symbol"`
	CompanyName string              `json:"companyName"`
	LatestPrice decimal.NullDecimal `json:"latestPrice"`
}

// Lookup fetches a quote with cache.
// Returns nil, nil when the API does not know the symbol.
// If the API fails, returns a cached quote fetched at most staleMaxAge ago.
// Older quotes are never used to price anything and the API error is returned.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = Normalize(symbol)
	if symbol == "" {
		return nil, nil
	}

	// Check persistent cache for fresh data
	if c.cacheRepo != nil {
		cached, err := c.cacheRepo.GetQuoteIfFresh(ctx, symbol)
		if err == nil && cached != nil {
			if q, err := cached.ToQuote(); err == nil {
				c.log.Debug().Str("symbol", symbol).Str("price", q.Price.String()).Msg("Cache hit")
				return q, nil
			}
		}
	}

	q, found, err := c.fetch(ctx, symbol)
	if err != nil {
		// API failed - try to get stale cached data as fallback
		if stale, ok := c.getStaleFromCache(ctx, symbol); ok {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("price", stale.Price.String()).
				Msg("API failed, using stale cached quote")
			return stale, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}

	// Cache persistently
	if c.cacheRepo != nil {
		if err := c.cacheRepo.StoreQuote(ctx, *q, c.cacheTTL); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	c.log.Debug().
		Str("symbol", q.Symbol).
		Str("price", q.Price.String()).
		Msg("Fetched quote")

	return q, nil
}

// fetch calls the API. found is false when the API answered that the symbol is unknown.
func (c *Client) fetch(ctx context.Context, symbol string) (q *domain.Quote, found bool, err error) {
	if c.baseURL == "" {
		return nil, false, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/stock/%s/quote", c.baseURL, url.PathEscape(symbol))
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result apiQuote
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.LatestPrice.Valid {
		return nil, false, fmt.Errorf("no price in API response for %s", symbol)
	}

	returned := Normalize(result.Symbol)
	if returned == "" {
		returned = symbol
	}

	return &domain.Quote{
		Symbol: returned,
		Name:   result.CompanyName,
		Price:  result.LatestPrice.Decimal,
	}, true, nil
}

// getStaleFromCache retrieves an expired cached quote that is still within staleAge.
func (c *Client) getStaleFromCache(ctx context.Context, symbol string) (*domain.Quote, bool) {
	if c.cacheRepo == nil || c.staleAge <= 0 {
		return nil, false
	}

	cached, err := c.cacheRepo.GetQuote(ctx, symbol)
	if err != nil || cached == nil {
		return nil, false
	}

	// Age counts from the earlier of fetch and expiry
	since := cached.StoredAt
	if cached.ExpiresAt < since {
		since = cached.ExpiresAt
	}
	age := c.now().Sub(time.Unix(since, 0))
	if age > c.staleAge {
		c.log.Debug().Str("symbol", symbol).Dur("age", age).Msg("Cached quote too old for fallback")
		return nil, false
	}

	q, err := cached.ToQuote()
	if err != nil {
		return nil, false
	}

	return q, true
}
