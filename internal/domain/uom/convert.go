package uom

import (
	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
)

// ToBase converts qty expressed in unit name into base units.
func (r *Registry) ToBase(qty decimal.Decimal, name string) (decimal.Decimal, error) {
	u, err := r.Resolve(name)
	if err != nil {
		return decimal.Zero, err
	}
	if u.IsBase {
		return qty, nil
	}
	return qty.Mul(u.Factor), nil
}

// FromBase converts a base-unit quantity into unit name.
func (r *Registry) FromBase(baseQty decimal.Decimal, name string) (decimal.Decimal, error) {
	u, err := r.Resolve(name)
	if err != nil {
		return decimal.Zero, err
	}
	if u.IsBase {
		return baseQty, nil
	}
	return baseQty.Div(u.Factor), nil
}

// Convert converts qty between two units of the same product through the base unit.
func (r *Registry) Convert(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		if _, err := r.Resolve(from); err != nil {
			return decimal.Zero, err
		}
		return qty, nil
	}
	base, err := r.ToBase(qty, from)
	if err != nil {
		return decimal.Zero, err
	}
	return r.FromBase(base, to)
}

// BaseUnitCost converts a price per unit name into a cost per base unit.
func (r *Registry) BaseUnitCost(price decimal.Decimal, name string) (decimal.Decimal, error) {
	u, err := r.Resolve(name)
	if err != nil {
		return decimal.Zero, err
	}
	return BaseUnitCost(price, u.Factor)
}

// PriceIn converts a cost per base unit into a price per unit name.
func (r *Registry) PriceIn(baseCost decimal.Decimal, name string) (decimal.Decimal, error) {
	u, err := r.Resolve(name)
	if err != nil {
		return decimal.Zero, err
	}
	return baseCost.Mul(u.Factor), nil
}

// BaseUnitCost divides a purchase price by the unit's conversion factor.
// A price of 240 per case of 24 is 10 per bottle.
func BaseUnitCost(price, factor decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, apperror.NewInvalidUnitCost(price.String())
	}
	if !factor.IsPositive() {
		return decimal.Zero, apperror.NewValidation("conversion factor must be positive").
			WithDetail("factor", factor.String())
	}
	return price.Div(factor), nil
}
