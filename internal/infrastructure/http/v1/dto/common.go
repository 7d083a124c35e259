// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
)

// IDResponse contains only ID.
type IDResponse struct {
	ID string `json:"id"`
}

// ListQuery contains the common list parameters.
type ListQuery struct {
	Search      string `form:"search"`
	Status      string `form:"status"`
	WarehouseID string `form:"warehouseId"`
	ProductID   string `form:"productId"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a domain filter.
func (q ListQuery) ToFilter() (domain.ListFilter, error) {
	f := domain.ListFilter{
		Search: q.Search,
		Status: q.Status,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	var err error
	if f.WarehouseID, err = ParseOptionalID("warehouseId", q.WarehouseID); err != nil {
		return f, err
	}
	if f.ProductID, err = ParseOptionalID("productId", q.ProductID); err != nil {
		return f, err
	}
	return f.Normalize(), nil
}

// ParseOptionalID parses an optional id parameter.
func ParseOptionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := id.Parse(raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid "+field+" format").WithDetail("field", field)
	}
	return &parsed, nil
}

// ParseID parses a required id parameter.
func ParseID(field, raw string) (id.ID, error) {
	parsed, err := ParseOptionalID(field, raw)
	if err != nil {
		return id.Nil(), err
	}
	if parsed == nil {
		return id.Nil(), apperror.NewValidation(field+" is required").WithDetail("field", field)
	}
	return *parsed, nil
}
