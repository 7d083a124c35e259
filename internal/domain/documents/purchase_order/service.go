package purchase_order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/id"
	"stockcost/internal/core/numerator"
	"stockcost/internal/core/tx"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/pkg/logger"
	"stockcost/pkg/validator"
)

// NumeratorStrategy for purchase order numbers. Gaps are acceptable.
var NumeratorStrategy = numerator.StrategyCached

// CreateInput describes a new purchase order.
type CreateInput struct {
	SupplierID  id.ID             `json:"supplierId" validate:"uuid_required"`
	WarehouseID id.ID             `json:"warehouseId" validate:"uuid_required"`
	Date        time.Time         `json:"date"`
	Comment     string            `json:"comment"`
	Lines       []CreateLineInput `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineInput describes an ordered line.
type CreateLineInput struct {
	ProductID id.ID           `json:"productId" validate:"uuid_required"`
	UOM       string          `json:"uom" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"decimal_gt0"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"decimal_gte0"`
}

// ProductReader is the part of the product catalog orders need.
type ProductReader interface {
	GetByID(ctx context.Context, id id.ID) (*product.Product, error)
}

// Service provides business operations for purchase orders.
type Service struct {
	repo      Repository
	products  ProductReader
	numerator numerator.Generator
	txManager tx.Manager
}

// NewService creates a new purchase order service.
func NewService(repo Repository, products ProductReader, numerator numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		numerator: numerator,
		txManager: txManager,
	}
}

// Create validates lines against the product catalog and stores the order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PurchaseOrder, error) {
	if err := validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	po := NewPurchaseOrder(in.SupplierID, in.WarehouseID)
	if !in.Date.IsZero() {
		po.Date = in.Date.UTC()
	}
	po.Comment = in.Comment

	for _, l := range in.Lines {
		p, err := s.products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		reg, err := p.Registry()
		if err != nil {
			return nil, err
		}
		// lines can only be ordered in a unit the receiving side can convert
		unit, err := reg.Resolve(l.UOM)
		if err != nil {
			return nil, err
		}
		po.AddLine(l.ProductID, l.UOM, unit.Factor, l.Quantity, l.UnitPrice)
	}

	if err := po.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PO"),
		&numerator.Options{Strategy: NumeratorStrategy}, po.Date)
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	po.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order created",
		"id", po.ID,
		"number", po.Number,
		"lines", len(po.Lines))

	return po, nil
}

// Get retrieves a purchase order with lines.
func (s *Service) Get(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.repo.GetByID(ctx, poID)
}

// List returns purchase orders matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	return s.repo.List(ctx, filter.Normalize())
}

// Cancel closes an order that has not received anything.
func (s *Service) Cancel(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.repo.GetForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if err := po.Cancel(); err != nil {
			return err
		}
		return s.repo.SaveProgress(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order cancelled", "id", po.ID, "number", po.Number)
	return po, nil
}
