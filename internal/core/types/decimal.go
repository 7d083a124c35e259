// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is a stock quantity with full precision.
// Valuation quantities are always expressed in the product's base unit.
type Quantity = decimal.Decimal

// Persistence precision. Intermediate arithmetic keeps full precision;
// values are rounded only when they are written to a store.
const (
	QuantityPlaces int32 = 4
	CostPlaces     int32 = 4
	MoneyPlaces    int32 = 2
)

// CompletionTolerance absorbs rounding noise when comparing received and ordered quantities.
var CompletionTolerance = decimal.New(1, -6)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustDecimal creates a decimal from a string, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero value.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// RoundQuantity rounds a quantity to storage precision.
func RoundQuantity(q Quantity) Quantity {
	return q.Round(QuantityPlaces)
}

// RoundCost rounds a per-unit cost to storage precision.
func RoundCost(c Money) Money {
	return c.Round(CostPlaces)
}

// RoundMoney rounds an amount to currency precision.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// AtLeast reports whether have >= want within CompletionTolerance.
func AtLeast(have, want decimal.Decimal) bool {
	return have.GreaterThanOrEqual(want.Sub(CompletionTolerance))
}

// AlmostEqual reports whether a and b differ by no more than CompletionTolerance.
func AlmostEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(CompletionTolerance)
}
