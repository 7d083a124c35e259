// Package domain provides types shared by domain services and repositories.
package domain

import (
	"stockcost/internal/core/id"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches code, name or number (substring, case-insensitive)
	Search string

	// Status filters documents by status
	Status string

	// ProductID filters by product (stock, vouchers)
	ProductID *id.ID

	// WarehouseID filters by warehouse
	WarehouseID *id.ID

	Limit  int
	Offset int
}

// Normalize clamps pagination values.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page builds a ListResult, cutting items to the filter window.
// Used by stores that filter in memory.
func Page[T any](all []T, f ListFilter) ListResult[T] {
	f = f.Normalize()
	res := ListResult[T]{TotalCount: int64(len(all)), Limit: f.Limit, Offset: f.Offset}
	if f.Offset >= len(all) {
		res.Items = []T{}
		return res
	}
	end := f.Offset + f.Limit
	if end > len(all) {
		end = len(all)
	}
	res.Items = all[f.Offset:end]
	return res
}
