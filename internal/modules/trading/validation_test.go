package trading

import (
	"math"
	"testing"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, validateQuantity(1))
	assert.ErrorIs(t, validateQuantity(0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, validateQuantity(-1), domain.ErrInvalidQuantity)
}

func TestCheckFunds(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		cash, cost string
		wantErr    bool
	}{
		{"100", "100", false},
		{"100", "99.99", false},
		{"100", "100.01", true},
		{"0", "0", false},
		{"0", "0.0000001", true},
	}
	for _, tt := range tests {
		t.Run(tt.cash+"-"+tt.cost, func(t *testing.T) {
			err := checkFunds(d(tt.cash), d(tt.cost))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPositionCapacity(t *testing.T) {
	assert.NoError(t, checkPositionCapacity(10, 5))
	assert.NoError(t, checkPositionCapacity(0, math.MaxInt64))
	assert.ErrorIs(t, checkPositionCapacity(1, math.MaxInt64), domain.ErrInvalidQuantity)
}

func TestValidateSellPosition(t *testing.T) {
	pos := &domain.Position{Symbol: "ABC", Shares: 10}

	assert.ErrorIs(t, validateSellPosition(nil, "ABC", 1), domain.ErrNoPosition)
	assert.NoError(t, validateSellPosition(pos, "ABC", 10))
	assert.ErrorIs(t, validateSellPosition(pos, "ABC", 11), domain.ErrInsufficientShares)
}
