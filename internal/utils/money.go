// Package utils provides presentation helpers shared by the HTTP handlers and the CLI.
package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatUSD renders an amount as US dollars, e.g. 1234.5 -> "$1,234.50".
// Sub-cent amounts are rounded to the nearest cent for display only.
func FormatUSD(amount decimal.Decimal) string {
	return FormatCurrency(amount, money.USD)
}

// FormatCurrency renders an amount in the given ISO currency, rounding to its minor unit
func FormatCurrency(amount decimal.Decimal, code string) string {
	// to get a never nil currency I need to call the Money constructor
	cur := money.New(0, code).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
