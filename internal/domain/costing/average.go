// Package costing computes the running weighted average cost of a product.
//
// All functions are pure. Results keep full decimal precision; rounding to
// storage precision is done by the caller when the value is persisted.
package costing

import (
	"github.com/shopspring/decimal"
)

// WeightedAverage blends an incoming receipt into the current average:
//
//	(currentQty*currentAvg + incomingQty*incomingCost) / (currentQty + incomingQty)
//
// With no stock on hand the incoming cost becomes the average unchanged.
// If the combined quantity is not positive the current average is kept.
func WeightedAverage(currentQty, currentAvg, incomingQty, incomingCost decimal.Decimal) decimal.Decimal {
	if !currentQty.IsPositive() {
		return incomingCost
	}
	total := currentQty.Add(incomingQty)
	if !total.IsPositive() {
		return currentAvg
	}
	value := currentQty.Mul(currentAvg).Add(incomingQty.Mul(incomingCost))
	return value.Div(total)
}

// Valuation is the stock on hand of a product together with its average cost per base unit.
type Valuation struct {
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"averageCost"`
}

// Apply returns the valuation after receiving incomingQty at incomingCost.
func (v Valuation) Apply(incomingQty, incomingCost decimal.Decimal) Valuation {
	return Valuation{
		Quantity:    v.Quantity.Add(incomingQty),
		AverageCost: WeightedAverage(v.Quantity, v.AverageCost, incomingQty, incomingCost),
	}
}

// Value is the total inventory value at the current average.
func (v Valuation) Value() decimal.Decimal {
	return v.Quantity.Mul(v.AverageCost)
}
