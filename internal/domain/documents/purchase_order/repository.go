package purchase_order

import (
	"context"

	"stockcost/internal/core/id"
	"stockcost/internal/domain"
)

// Repository defines persistence for purchase orders.
type Repository interface {
	// Create inserts the order and its lines.
	Create(ctx context.Context, po *PurchaseOrder) error

	// GetByID returns the order with lines, PURCHASE_ORDER_NOT_FOUND when absent.
	GetByID(ctx context.Context, id id.ID) (*PurchaseOrder, error)

	// GetForUpdate locks the order row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id id.ID) (*PurchaseOrder, error)

	// FindOrderIDByLine resolves the order owning a line.
	FindOrderIDByLine(ctx context.Context, lineID id.ID) (id.ID, error)

	// SaveProgress persists received quantities and statuses of the order and its lines.
	SaveProgress(ctx context.Context, po *PurchaseOrder) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*PurchaseOrder], error)
}
