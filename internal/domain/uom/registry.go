// Package uom resolves a product's units of measure and converts quantities
// and unit costs between packaging units and the product's base unit.
//
// A Registry is a closed set: every unit a product can be bought or sold in
// is listed explicitly, the base unit included with factor 1. Looking up a
// unit that is not listed is an error. There is no 1:1 fallback.
package uom

import (
	"sort"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
)

// Unit is one resolvable unit of a product.
type Unit struct {
	Name string `json:"name"`

	// Factor is how many base units one of this unit contains.
	// Always 1 for the base unit.
	Factor decimal.Decimal `json:"factor"`

	// SellingPrice per this unit, informational.
	SellingPrice decimal.Decimal `json:"sellingPrice"`

	IsBase bool `json:"isBase"`
}

// Registry maps unit names of a single product to their conversion factors.
// Names are matched exactly (case-sensitive).
type Registry struct {
	productID id.ID
	base      string
	units     map[string]Unit
}

// NewRegistry builds the registry of a product from its base unit name and alternate units.
// Factors are validated here, so conversions never see a non-positive factor.
func NewRegistry(productID id.ID, baseName string, alternates []Unit) (*Registry, error) {
	if baseName == "" {
		return nil, apperror.NewValidation("base unit is required").
			WithDetail("field", "baseUom")
	}

	r := &Registry{
		productID: productID,
		base:      baseName,
		units:     make(map[string]Unit, len(alternates)+1),
	}
	r.units[baseName] = Unit{Name: baseName, Factor: decimal.NewFromInt(1), IsBase: true}

	for _, u := range alternates {
		if err := r.add(u); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(u Unit) error {
	switch {
	case u.Name == "":
		return apperror.NewValidation("unit name is required").
			WithDetail("field", "uoms.name")
	case u.Name == r.base:
		return apperror.NewValidation("alternate unit cannot reuse the base unit name").
			WithDetail("uom", u.Name)
	case !u.Factor.IsPositive():
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("uom", u.Name).
			WithDetail("factor", u.Factor.String())
	}
	if _, exists := r.units[u.Name]; exists {
		return apperror.NewValidation("duplicate unit").
			WithDetail("uom", u.Name)
	}

	u.IsBase = false
	r.units[u.Name] = u
	return nil
}

// ProductID returns the product the registry belongs to.
func (r *Registry) ProductID() id.ID { return r.productID }

// BaseName returns the name of the base unit.
func (r *Registry) BaseName() string { return r.base }

// Resolve returns the unit with the given name.
func (r *Registry) Resolve(name string) (Unit, error) {
	u, ok := r.units[name]
	if !ok {
		return Unit{}, apperror.NewUOMNotConfigured(r.productID.String(), name)
	}
	return u, nil
}

// Has reports whether the unit is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.units[name]
	return ok
}

// Units lists the base unit first, then alternates by name.
func (r *Registry) Units() []Unit {
	out := make([]Unit, 0, len(r.units))
	for name, u := range r.units {
		if name != r.base {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return append([]Unit{r.units[r.base]}, out...)
}
