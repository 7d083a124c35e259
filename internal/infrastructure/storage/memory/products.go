package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
)

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

var _ product.Repository = (*ProductRepo)(nil)

func copyProduct(p product.Product) *product.Product {
	p.UOMs = slices.Clone(p.UOMs)
	return &p
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.s.do(ctx, func(st *state) error {
		if _, exists := st.codes[p.Code]; exists {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		st.products[p.ID] = *copyProduct(*p)
		st.codes[p.Code] = p.ID
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var out *product.Product
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewProductNotFound(productID.String())
		}
		out = copyProduct(p)
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	var out *product.Product
	err := r.s.do(ctx, func(st *state) error {
		pid, ok := st.codes[code]
		if !ok {
			return apperror.NewProductNotFound(code)
		}
		out = copyProduct(st.products[pid])
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the store lock already serializes transactions.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *ProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(st *state) error {
		_, exists = st.codes[code]
		return nil
	})
	return exists, err
}

func (r *ProductRepo) UpdateAverageCost(ctx context.Context, productID id.ID, avg decimal.Decimal) error {
	return r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewProductNotFound(productID.String())
		}
		p.AverageCostPrice = avg
		p.UpdatedAt = time.Now().UTC()
		p.Touch()
		st.products[productID] = p
		return nil
	})
}

func (r *ProductRepo) AddUOM(ctx context.Context, u product.ProductUOM) error {
	return r.s.do(ctx, func(st *state) error {
		p, ok := st.products[u.ProductID]
		if !ok {
			return apperror.NewProductNotFound(u.ProductID.String())
		}
		for _, existing := range p.UOMs {
			if existing.Name == u.Name {
				return apperror.NewDuplicate("product uom", "name", u.Name)
			}
		}
		p.UOMs = append(slices.Clone(p.UOMs), u)
		p.Touch()
		st.products[u.ProductID] = p
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	var res domain.ListResult[*product.Product]
	err := r.s.do(ctx, func(st *state) error {
		search := strings.ToLower(filter.Search)
		all := make([]*product.Product, 0, len(st.products))
		for _, p := range st.products {
			if search != "" &&
				!strings.Contains(strings.ToLower(p.Code), search) &&
				!strings.Contains(strings.ToLower(p.Name), search) {
				continue
			}
			all = append(all, copyProduct(p))
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
		res = domain.Page(all, filter)
		return nil
	})
	return res, err
}
