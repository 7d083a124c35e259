package product

import (
	"context"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/id"
	"stockcost/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	// Create inserts the product with its alternate units.
	Create(ctx context.Context, p *Product) error

	// GetByID returns PRODUCT_NOT_FOUND when absent.
	GetByID(ctx context.Context, id id.ID) (*Product, error)

	GetByCode(ctx context.Context, code string) (*Product, error)

	// GetForUpdate retrieves the product with a row lock held until the transaction ends.
	// Receipts of the same product serialize on this lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	ExistsByCode(ctx context.Context, code string) (bool, error)

	UpdateAverageCost(ctx context.Context, id id.ID, avg decimal.Decimal) error

	AddUOM(ctx context.Context, u ProductUOM) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)
}
