package entity

import "context"

// Catalog is reference data addressed by a unique code, such as a product.
type Catalog struct {
	Entity

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

func NewCatalog(code, name string) Catalog {
	return Catalog{Entity: NewEntity(), Code: code, Name: name}
}

// Validate checks that name and code are set.
func (c *Catalog) Validate(ctx context.Context) error {
	if err := requireField("name", c.Name); err != nil {
		return err
	}
	return requireField("code", c.Code)
}
