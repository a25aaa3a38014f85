package domain

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderSideFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected OrderSide
		wantErr  bool
	}{
		{"buy", OrderSideBuy, false},
		{"BUY", OrderSideBuy, false},
		{" sell ", OrderSideSell, false},
		{"short", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			side, err := OrderSideFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, side)
		})
	}
}

func TestOrderValue(t *testing.T) {
	order := Order{Price: decimal.RequireFromString("12.34"), Shares: 3}
	assert.Equal(t, "37.02", order.Value().String())
}

func TestStorageError(t *testing.T) {
	cause := sql.ErrConnDone
	err := fmt.Errorf("execute buy: %w", NewStorageError("commit", cause))

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
	assert.Contains(t, err.Error(), "commit")

	assert.NoError(t, NewStorageError("noop", nil))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("op", nil))

	kindErr := fmt.Errorf("transaction failed: %w", ErrInsufficientShares)
	assert.Same(t, kindErr, Classify("op", kindErr))

	classified := Classify("commit", errors.New("disk I/O error"))
	assert.True(t, errors.Is(classified, ErrStorage))
	assert.Contains(t, classified.Error(), "disk I/O error")
}
