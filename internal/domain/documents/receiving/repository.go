package receiving

import (
	"context"

	"stockcost/internal/core/id"
	"stockcost/internal/domain"
)

// Repository defines persistence for receiving vouchers.
type Repository interface {
	// Create inserts the voucher and its items.
	Create(ctx context.Context, v *Voucher) error

	// GetByID returns the voucher with items, VOUCHER_NOT_FOUND when absent.
	GetByID(ctx context.Context, id id.ID) (*Voucher, error)

	// GetForUpdate locks the voucher row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id id.ID) (*Voucher, error)

	// MarkCancelled persists the cancel transition.
	MarkCancelled(ctx context.Context, v *Voucher) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Voucher], error)
}
