// Package clientdata provides persistent caching for external API client responses.
// Entries are stored as msgpack blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// CachedQuote is the structure stored in the quote cache
type CachedQuote struct {
	Symbol   string `msgpack:"s"`
	Name     string `msgpack:"n,omitempty"`
	Price    string `msgpack:"p"` // Canonical decimal string
	StoredAt int64  `msgpack:"t"` // Unix seconds

	// ExpiresAt is read from the expires_at column, not the blob
	ExpiresAt int64 `msgpack:"-"`
}

// ToQuote converts the cached entry back into a domain quote
func (c CachedQuote) ToQuote() (*domain.Quote, error) {
	price, err := decimal.NewFromString(c.Price)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached price for %s: %w", c.Symbol, err)
	}
	return &domain.Quote{Symbol: c.Symbol, Name: c.Name, Price: price}, nil
}

// Repository provides quote cache operations on client_data.db.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func cacheKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// StoreQuote saves a quote with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) StoreQuote(ctx context.Context, quote domain.Quote, ttl time.Duration) error {
	now := r.now()
	blob, err := msgpack.Marshal(CachedQuote{
		Symbol:   cacheKey(quote.Symbol),
		Name:     quote.Name,
		Price:    quote.Price.String(),
		StoredAt: now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO quote_cache (symbol, data, expires_at) VALUES (?, ?, ?)",
		cacheKey(quote.Symbol), blob, now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store quote for %s: %w", quote.Symbol, err)
	}

	return nil
}

// GetQuoteIfFresh returns the cached quote only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use GetQuote() to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetQuoteIfFresh(ctx context.Context, symbol string) (*CachedQuote, error) {
	return r.getQuote(ctx,
		"SELECT data, expires_at FROM quote_cache WHERE symbol = ? AND expires_at > ?",
		cacheKey(symbol), r.now().Unix(),
	)
}

// GetQuote returns the cached quote regardless of expiration status.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) GetQuote(ctx context.Context, symbol string) (*CachedQuote, error) {
	return r.getQuote(ctx, "SELECT data, expires_at FROM quote_cache WHERE symbol = ?", cacheKey(symbol))
}

func (r *Repository) getQuote(ctx context.Context, query string, args ...interface{}) (*CachedQuote, error) {
	var blob []byte
	var expiresAt int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&blob, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached quote: %w", err)
	}

	var cached CachedQuote
	if err := msgpack.Unmarshal(blob, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached quote: %w", err)
	}
	cached.ExpiresAt = expiresAt
	return &cached, nil
}

// DeleteQuote removes a specific entry.
func (r *Repository) DeleteQuote(ctx context.Context, symbol string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM quote_cache WHERE symbol = ?", cacheKey(symbol)); err != nil {
		return fmt.Errorf("failed to delete cached quote for %s: %w", symbol, err)
	}
	return nil
}

// DeleteExpired removes all rows whose expires_at is older than now - retention.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention).Unix()

	result, err := r.db.ExecContext(ctx, "DELETE FROM quote_cache WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired quotes: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
