// Package stock provides inventory balances and the append-only movement ledger.
package stock

import (
	"context"
	"time"

	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
)

// Repository defines operations for the stock register.
// Quantities are base units.
type Repository interface {
	// Increment atomically adds qty to the balance, creating it if absent,
	// and returns the new balance.
	Increment(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity) (types.Quantity, error)

	// DecrementIfAvailable atomically subtracts qty only if the balance covers it.
	// ok is false, with nothing changed, when it does not.
	DecrementIfAvailable(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity) (newQty types.Quantity, ok bool, err error)

	// GetBalance returns current balance for warehouse+product (zero if none).
	GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error)

	// GetBalanceForUpdate returns balance with row lock.
	GetBalanceForUpdate(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error)

	// GetBalancesByProduct returns balances across all warehouses for a product.
	GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error)

	// TotalByProduct sums the product's balances across warehouses.
	TotalByProduct(ctx context.Context, productID id.ID) (types.Quantity, error)

	// CreateMovements appends movements to the ledger.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// GetMovementsByReference returns movements produced by a document, oldest first.
	GetMovementsByReference(ctx context.Context, referenceID id.ID) ([]entity.StockMovement, error)

	// GetMovementHistory returns movement history for a product, newest first.
	GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error)
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	WarehouseID *id.ID
	Direction   *entity.Direction
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// Matches reports whether m passes the filter. Pagination is not applied.
func (f MovementFilter) Matches(m entity.StockMovement) bool {
	if f.WarehouseID != nil && m.WarehouseID != *f.WarehouseID {
		return false
	}
	if f.Direction != nil && m.Direction != *f.Direction {
		return false
	}
	if f.FromDate != nil && m.CreatedAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && !m.CreatedAt.Before(*f.ToDate) {
		return false
	}
	return true
}
