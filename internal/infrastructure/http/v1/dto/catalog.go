package dto

import (
	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
)

// ConvertQuery holds the parameters of GET /catalog/products/:id/convert.
type ConvertQuery struct {
	Quantity string `form:"qty" binding:"required"`
	From     string `form:"from" binding:"required"`
	To       string `form:"to" binding:"required"`
}

// ParsedQuantity returns the quantity as a decimal.
func (q ConvertQuery) ParsedQuantity() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(q.Quantity)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("invalid qty").WithDetail("field", "qty")
	}
	return d, nil
}
