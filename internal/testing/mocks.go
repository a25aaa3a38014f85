package testing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/shopspring/decimal"
)

// StaticQuoteProvider is an in-memory domain.QuoteProvider for tests.
// Symbols are matched case-insensitively but returned in lower case, so
// callers must do their own normalization.
type StaticQuoteProvider struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	err    error
	delay  time.Duration
	calls  int
}

// NewStaticQuoteProvider creates a provider with no known symbols
func NewStaticQuoteProvider() *StaticQuoteProvider {
	return &StaticQuoteProvider{prices: make(map[string]decimal.Decimal)}
}

// SetPrice sets the price for a symbol
func (p *StaticQuoteProvider) SetPrice(symbol string, price string) *StaticQuoteProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[strings.ToLower(symbol)] = decimal.RequireFromString(price)
	return p
}

// Remove delists a symbol
func (p *StaticQuoteProvider) Remove(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.prices, strings.ToLower(symbol))
}

// SetError makes every lookup fail with err (nil clears it)
func (p *StaticQuoteProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// SetDelay makes every lookup wait d or until the context is done
func (p *StaticQuoteProvider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Calls returns how many lookups were made
func (p *StaticQuoteProvider) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

// Lookup implements domain.QuoteProvider
func (p *StaticQuoteProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	p.mu.Lock()
	p.calls++
	delay, err := p.delay, p.err
	price, ok := p.prices[strings.ToLower(strings.TrimSpace(symbol))]
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &domain.Quote{Symbol: strings.ToLower(strings.TrimSpace(symbol)), Price: price}, nil
}

var _ domain.QuoteProvider = (*StaticQuoteProvider)(nil)
