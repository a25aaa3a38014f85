package trading

import (
	"fmt"
	"math"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Pre-trade checks. All of them run before any write so a rejected order
// never needs a rollback.

// validateQuantity checks the share count
// Layer 0: runs before the quote lookup and any store access
func validateQuantity(shares int64) error {
	if shares < 1 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, shares)
	}
	return nil
}

// checkFunds validates that the account can pay for a buy
// Layer 1: rejects iff cash - cost < 0, using the exact quoted price
func checkFunds(cash, cost decimal.Decimal) error {
	if cash.Sub(cost).IsNegative() {
		return fmt.Errorf("%w: cost %s exceeds cash %s", domain.ErrInsufficientFunds, cost, cash)
	}
	return nil
}

// checkPositionCapacity rejects a buy whose share count would overflow the position
// Layer 2
func checkPositionCapacity(held, shares int64) error {
	if shares > math.MaxInt64-held {
		return fmt.Errorf("%w: position would exceed %d shares", domain.ErrInvalidQuantity, int64(math.MaxInt64))
	}
	return nil
}

// validateSellPosition validates sufficient position for sell
// Layer 3: no short selling
func validateSellPosition(pos *domain.Position, symbol string, shares int64) error {
	if pos == nil {
		return fmt.Errorf("%w: %s", domain.ErrNoPosition, symbol)
	}
	if shares > pos.Shares {
		return fmt.Errorf("%w: requested %d, holding %d %s", domain.ErrInsufficientShares, shares, pos.Shares, symbol)
	}
	return nil
}
