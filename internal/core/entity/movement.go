package entity

import (
	"time"

	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
)

// Direction of a stock movement.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Reference types of documents that produce movements.
const (
	ReferenceReceivingVoucher = "ReceivingVoucher"
	ReferenceStockAdjustment  = "StockAdjustment"
)

// StockMovement is an immutable ledger entry. Movements are only appended;
// a reversal is a new movement in the opposite direction.
type StockMovement struct {
	ID          id.ID     `db:"id" json:"id"`
	Direction   Direction `db:"direction" json:"direction"`
	WarehouseID id.ID     `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID     `db:"product_id" json:"productId"`

	// Quantity is always positive and in base units.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// ReferenceType/ReferenceID point at the producing document,
	// ReferenceLineID at the document line.
	ReferenceType   string `db:"reference_type" json:"referenceType"`
	ReferenceID     id.ID  `db:"reference_id" json:"referenceId"`
	ReferenceLineID id.ID  `db:"reference_line_id" json:"referenceLineId"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a new movement stamped now.
func NewStockMovement(
	direction Direction,
	warehouseID, productID id.ID,
	quantity types.Quantity,
	referenceType string,
	referenceID, referenceLineID id.ID,
) StockMovement {
	return StockMovement{
		ID:              id.New(),
		Direction:       direction,
		WarehouseID:     warehouseID,
		ProductID:       productID,
		Quantity:        types.RoundQuantity(quantity),
		ReferenceType:   referenceType,
		ReferenceID:     referenceID,
		ReferenceLineID: referenceLineID,
		CreatedAt:       time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on direction.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// StockBalance is the on-hand quantity of a product in a warehouse, in base units.
type StockBalance struct {
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID          `db:"product_id" json:"productId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}
