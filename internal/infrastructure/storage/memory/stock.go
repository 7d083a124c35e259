package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
	"stockcost/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct{ s *Store }

var _ stock.Repository = (*StockRepo)(nil)

func (r *StockRepo) Increment(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity) (types.Quantity, error) {
	var out types.Quantity
	err := r.s.do(ctx, func(st *state) error {
		key := balanceKey{warehouseID, productID}
		bal, ok := st.balances[key]
		if !ok {
			bal = entity.StockBalance{WarehouseID: warehouseID, ProductID: productID, Quantity: decimal.Zero}
		}
		bal.Quantity = types.RoundQuantity(bal.Quantity.Add(qty))
		bal.UpdatedAt = time.Now().UTC()
		st.balances[key] = bal
		out = bal.Quantity
		return nil
	})
	return out, err
}

func (r *StockRepo) DecrementIfAvailable(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity) (types.Quantity, bool, error) {
	var (
		out types.Quantity
		ok  bool
	)
	err := r.s.do(ctx, func(st *state) error {
		key := balanceKey{warehouseID, productID}
		bal, exists := st.balances[key]
		if !exists || bal.Quantity.LessThan(qty) {
			return nil
		}
		bal.Quantity = types.RoundQuantity(bal.Quantity.Sub(qty))
		bal.UpdatedAt = time.Now().UTC()
		st.balances[key] = bal
		out, ok = bal.Quantity, true
		return nil
	})
	return out, ok, err
}

func (r *StockRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	var out entity.StockBalance
	err := r.s.do(ctx, func(st *state) error {
		bal, ok := st.balances[balanceKey{warehouseID, productID}]
		if !ok {
			bal = entity.StockBalance{WarehouseID: warehouseID, ProductID: productID, Quantity: decimal.Zero}
		}
		out = bal
		return nil
	})
	return out, err
}

func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return r.GetBalance(ctx, warehouseID, productID)
}

func (r *StockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error) {
	var out []entity.StockBalance
	err := r.s.do(ctx, func(st *state) error {
		for key, bal := range st.balances {
			if key.productID == productID {
				out = append(out, bal)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID.String() < out[j].WarehouseID.String() })
	return out, err
}

func (r *StockRepo) TotalByProduct(ctx context.Context, productID id.ID) (types.Quantity, error) {
	total := decimal.Zero
	err := r.s.do(ctx, func(st *state) error {
		for key, bal := range st.balances {
			if key.productID == productID {
				total = total.Add(bal.Quantity)
			}
		}
		return nil
	})
	return total, err
}

func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	return r.s.do(ctx, func(st *state) error {
		st.movements = append(st.movements, movements...)
		return nil
	})
}

func (r *StockRepo) GetMovementsByReference(ctx context.Context, referenceID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	err := r.s.do(ctx, func(st *state) error {
		for _, m := range st.movements {
			if m.ReferenceID == referenceID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	err := r.s.do(ctx, func(st *state) error {
		for _, m := range slices.Backward(st.movements) {
			if m.ProductID != productID || !filter.Matches(m) {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset >= len(out) {
		return []entity.StockMovement{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
