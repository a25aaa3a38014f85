// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an executed order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderSideFromString parses a side, case-insensitively
func OrderSideFromString(s string) (OrderSide, error) {
	switch OrderSide(strings.ToLower(strings.TrimSpace(s))) {
	case OrderSideBuy:
		return OrderSideBuy, nil
	case OrderSideSell:
		return OrderSideSell, nil
	}
	return "", fmt.Errorf("invalid order side: %q", s)
}

// Account is a single user's simulated brokerage account
type Account struct {
	CreatedAt time.Time       `json:"created_at"`
	Username  string          `json:"username"`
	Cash      decimal.Decimal `json:"cash"`
	ID        int64           `json:"id"`
}

// Position is a nonzero holding of one symbol by one account.
// It is a cache of the account's order history, maintained only by the trading service.
type Position struct {
	UpdatedAt time.Time `json:"updated_at"`
	Symbol    string    `json:"symbol"`
	AccountID int64     `json:"account_id"`
	Shares    int64     `json:"shares"`
}

// Order is an immutable record of one executed buy or sell
type Order struct {
	ExecutedAt time.Time       `json:"executed_at"`
	Ref        string          `json:"ref"` // Public identifier (UUID)
	Symbol     string          `json:"symbol"`
	Side       OrderSide       `json:"side"`
	Price      decimal.Decimal `json:"price"` // Unit price at execution
	ID         int64           `json:"id"`    // Monotonic execution sequence
	AccountID  int64           `json:"account_id"`
	Shares     int64           `json:"shares"`
}

// Value returns price * shares
func (o Order) Value() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Shares))
}

// Quote is a price for a symbol as returned by a QuoteProvider
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name,omitempty"`
	Price  decimal.Decimal `json:"price"`
}

// Holding is one valued line of a portfolio view
type Holding struct {
	Symbol       string          `json:"symbol"`
	Shares       int64           `json:"shares"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
}

// PortfolioView is the read-only valuation of an account
type PortfolioView struct {
	Holdings   []Holding       `json:"holdings"`
	Cash       decimal.Decimal `json:"cash"`
	TotalValue decimal.Decimal `json:"total_value"`
	AccountID  int64           `json:"account_id"`
}
