// Package product provides the product catalog: base unit, packaging units
// and the running average cost per base unit.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
	"stockcost/internal/domain/uom"
)

// Product is a stocked item.
type Product struct {
	entity.Catalog

	// BaseUOM is the smallest tracked unit, e.g. "bottle". All inventory
	// quantities and AverageCostPrice are expressed in it.
	BaseUOM string `db:"base_uom" json:"baseUom"`

	// AverageCostPrice per base unit. Changed only by stock receipts.
	AverageCostPrice decimal.Decimal `db:"average_cost_price" json:"averageCostPrice"`

	// SellingPrice per base unit.
	SellingPrice decimal.Decimal `db:"selling_price" json:"sellingPrice"`

	entity.Timestamps

	// UOMs are the alternate packaging units. Stored in cat_product_uoms.
	UOMs []ProductUOM `db:"-" json:"uoms"`
}

// ProductUOM is an alternate unit of a product.
type ProductUOM struct {
	ID        id.ID  `db:"id" json:"id"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	Name      string `db:"name" json:"name"`

	// ConversionFactor is the number of base units in one of this unit.
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`

	SellingPrice decimal.Decimal `db:"selling_price" json:"sellingPrice"`
}

// NewProduct creates a new Product with zero average cost.
func NewProduct(code, name, baseUOM string) *Product {
	return &Product{
		Catalog:          entity.NewCatalog(code, name),
		BaseUOM:          baseUOM,
		AverageCostPrice: decimal.Zero,
		SellingPrice:     decimal.Zero,
		Timestamps:       entity.NewTimestamps(),
	}
}

// Validate checks the catalog fields, prices and unit registry.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.AverageCostPrice.IsNegative() {
		return apperror.NewValidation("average cost cannot be negative").
			WithDetail("field", "averageCostPrice")
	}
	if p.SellingPrice.IsNegative() {
		return apperror.NewValidation("selling price cannot be negative").
			WithDetail("field", "sellingPrice")
	}
	_, err := p.Registry()
	return err
}

// Registry builds the unit registry of the product.
func (p *Product) Registry() (*uom.Registry, error) {
	units := make([]uom.Unit, 0, len(p.UOMs))
	for _, u := range p.UOMs {
		units = append(units, uom.Unit{
			Name:         u.Name,
			Factor:       u.ConversionFactor,
			SellingPrice: u.SellingPrice,
		})
	}
	return uom.NewRegistry(p.ID, p.BaseUOM, units)
}

// AddUOM registers an alternate unit. The whole registry is revalidated,
// so a duplicate name or a non-positive factor is rejected here.
func (p *Product) AddUOM(name string, factor, sellingPrice decimal.Decimal) (ProductUOM, error) {
	u := ProductUOM{
		ID:               id.New(),
		ProductID:        p.ID,
		Name:             name,
		ConversionFactor: factor,
		SellingPrice:     sellingPrice,
	}
	if sellingPrice.IsNegative() {
		return ProductUOM{}, apperror.NewValidation("selling price cannot be negative").
			WithDetail("uom", name)
	}

	p.UOMs = append(p.UOMs, u)
	if _, err := p.Registry(); err != nil {
		p.UOMs = p.UOMs[:len(p.UOMs)-1]
		return ProductUOM{}, err
	}
	return u, nil
}

// ApplyAverageCost stores a recomputed average, rounded to cost precision.
func (p *Product) ApplyAverageCost(avg decimal.Decimal) {
	p.AverageCostPrice = types.RoundCost(avg)
	p.Stamp()
}
