package product

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/core/numerator"
	"stockcost/internal/core/tx"
	"stockcost/internal/domain"
	"stockcost/pkg/logger"
	"stockcost/pkg/validator"
)

// CreateInput describes a new product.
type CreateInput struct {
	// Code is generated when empty.
	Code         string          `json:"code"`
	Name         string          `json:"name" validate:"required"`
	BaseUOM      string          `json:"baseUom" validate:"required"`
	SellingPrice decimal.Decimal `json:"sellingPrice" validate:"decimal_gte0"`
	UOMs         []UOMInput      `json:"uoms" validate:"dive"`
}

// UOMInput describes an alternate unit.
type UOMInput struct {
	Name             string          `json:"name" validate:"required"`
	ConversionFactor decimal.Decimal `json:"conversionFactor" validate:"decimal_gt0"`
	SellingPrice     decimal.Decimal `json:"sellingPrice" validate:"decimal_gte0"`
}

// Conversion is the result of converting a quantity between two units.
type Conversion struct {
	ProductID    id.ID           `json:"productId"`
	Quantity     decimal.Decimal `json:"quantity"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Result       decimal.Decimal `json:"result"`
	BaseQuantity decimal.Decimal `json:"baseQuantity"`
}

// Service provides business logic for the product catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.Manager, numerator numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: numerator,
	}
}

// Create registers a product with its packaging units.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	if err := validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	code := in.Code
	if code == "" {
		cfg := numerator.DefaultConfig("PRD")
		cfg.IncludeYear = false
		cfg.ResetPeriod = numerator.PeriodNever
		generated, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		code = generated
	}

	p := NewProduct(code, in.Name, in.BaseUOM)
	p.SellingPrice = in.SellingPrice
	for _, u := range in.UOMs {
		if _, err := p.AddUOM(u.Name, u.ConversionFactor, u.SellingPrice); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByCode(ctx, p.Code)
		if err != nil {
			return fmt.Errorf("check code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created",
		"id", p.ID,
		"code", p.Code,
		"base_uom", p.BaseUOM,
		"uoms", len(p.UOMs))

	return p, nil
}

// Get retrieves a product with its units.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetByCode retrieves a product by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Product, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.List(ctx, filter.Normalize())
}

// AddUOM registers an additional packaging unit on an existing product.
func (s *Service) AddUOM(ctx context.Context, productID id.ID, in UOMInput) (*Product, error) {
	if err := validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	var p *Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		u, err := p.AddUOM(in.Name, in.ConversionFactor, in.SellingPrice)
		if err != nil {
			return err
		}
		return s.repo.AddUOM(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product uom added",
		"product_id", productID,
		"uom", in.Name,
		"factor", in.ConversionFactor.String())

	return p, nil
}

// Convert converts qty of a product between two of its units.
func (s *Service) Convert(ctx context.Context, productID id.ID, qty decimal.Decimal, from, to string) (*Conversion, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	reg, err := p.Registry()
	if err != nil {
		return nil, err
	}

	base, err := reg.ToBase(qty, from)
	if err != nil {
		return nil, err
	}
	result, err := reg.FromBase(base, to)
	if err != nil {
		return nil, err
	}

	return &Conversion{
		ProductID:    productID,
		Quantity:     qty,
		From:         from,
		To:           to,
		Result:       result,
		BaseQuantity: base,
	}, nil
}
