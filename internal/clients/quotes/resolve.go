package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/paperledger/internal/domain"
)

// Normalize trims and upper-cases a ticker symbol
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Resolve looks symbol up through provider, bounded by timeout (0 = no bound),
// and maps the outcome onto ledger error kinds:
//
//	absent quote             -> domain.ErrUnknownSymbol
//	provider error / timeout -> domain.ErrQuoteUnavailable
//	negative price           -> domain.ErrQuoteUnavailable
//
// The returned quote carries the normalized symbol.
func Resolve(ctx context.Context, provider domain.QuoteProvider, symbol string, timeout time.Duration) (*domain.Quote, error) {
	requested := Normalize(symbol)
	if requested == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrUnknownSymbol)
	}

	lookupCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	q, err := provider.Lookup(lookupCtx, requested)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, requested, err)
	}
	if q == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, requested)
	}
	if q.Price.IsNegative() {
		return nil, fmt.Errorf("%w: %s: negative price %s", domain.ErrQuoteUnavailable, requested, q.Price)
	}

	resolved := *q
	resolved.Symbol = Normalize(q.Symbol)
	if resolved.Symbol == "" {
		resolved.Symbol = requested
	}
	return &resolved, nil
}
