package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/paperledger/internal/domain"
	testingpkg "github.com/aristath/paperledger/internal/testing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", "ABC"},
		{"  brk.b ", "BRK.B"},
		{"MSFT", "MSFT"},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestResolve(t *testing.T) {
	provider := testingpkg.NewStaticQuoteProvider().SetPrice("ABC", "50")

	q, err := Resolve(context.Background(), provider, " abc", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ABC", q.Symbol, "provider returns lower case; Resolve normalizes")
	assert.True(t, decimal.NewFromInt(50).Equal(q.Price))
}

func TestResolve_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.QuoteProvider
		symbol   string
		want     error
	}{
		{
			name:     "unknown symbol",
			provider: testingpkg.NewStaticQuoteProvider(),
			symbol:   "NOPE",
			want:     domain.ErrUnknownSymbol,
		},
		{
			name:     "empty symbol",
			provider: testingpkg.NewStaticQuoteProvider(),
			symbol:   " ",
			want:     domain.ErrUnknownSymbol,
		},
		{
			name: "provider error",
			provider: domain.QuoteProviderFunc(func(context.Context, string) (*domain.Quote, error) {
				return nil, errors.New("connection refused")
			}),
			symbol: "ABC",
			want:   domain.ErrQuoteUnavailable,
		},
		{
			name: "negative price",
			provider: domain.QuoteProviderFunc(func(_ context.Context, s string) (*domain.Quote, error) {
				return &domain.Quote{Symbol: s, Price: decimal.NewFromInt(-1)}, nil
			}),
			symbol: "ABC",
			want:   domain.ErrQuoteUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(context.Background(), tt.provider, tt.symbol, time.Second)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolve_Timeout(t *testing.T) {
	provider := testingpkg.NewStaticQuoteProvider().SetPrice("ABC", "50")
	provider.SetDelay(time.Second)

	start := time.Now()
	_, err := Resolve(context.Background(), provider, "ABC", 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
