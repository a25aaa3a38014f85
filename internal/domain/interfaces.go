package domain

import "context"

// QuoteProvider resolves a symbol to its current price.
// A nil quote with a nil error means the symbol is unknown.
// Implementations need not normalize the returned symbol.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// QuoteProviderFunc adapts a plain function to QuoteProvider
type QuoteProviderFunc func(ctx context.Context, symbol string) (*Quote, error)

// Lookup calls f
func (f QuoteProviderFunc) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	return f(ctx, symbol)
}
