package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/documents/purchase_order"
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct{ s *Store }

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)

func copyOrder(po purchase_order.PurchaseOrder) *purchase_order.PurchaseOrder {
	po.Lines = slices.Clone(po.Lines)
	return &po
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *purchase_order.PurchaseOrder) error {
	return r.s.do(ctx, func(st *state) error {
		if _, exists := st.orders[po.ID]; exists {
			return apperror.NewDuplicate("purchase order", "id", po.ID.String())
		}
		st.orders[po.ID] = *copyOrder(*po)
		for _, l := range po.Lines {
			st.lineIndex[l.ID] = po.ID
		}
		return nil
	})
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, poID id.ID) (*purchase_order.PurchaseOrder, error) {
	var out *purchase_order.PurchaseOrder
	err := r.s.do(ctx, func(st *state) error {
		po, ok := st.orders[poID]
		if !ok {
			return apperror.NewPurchaseOrderNotFound(poID.String())
		}
		out = copyOrder(po)
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, poID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.GetByID(ctx, poID)
}

func (r *PurchaseOrderRepo) FindOrderIDByLine(ctx context.Context, lineID id.ID) (id.ID, error) {
	var out id.ID
	err := r.s.do(ctx, func(st *state) error {
		poID, ok := st.lineIndex[lineID]
		if !ok {
			return apperror.NewPurchaseOrderNotFound(lineID.String()).
				WithDetail("entity", "purchase order line")
		}
		out = poID
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) SaveProgress(ctx context.Context, po *purchase_order.PurchaseOrder) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.orders[po.ID]
		if !ok {
			return apperror.NewPurchaseOrderNotFound(po.ID.String())
		}
		lines := slices.Clone(stored.Lines)
		for i := range lines {
			if l, ok := po.Line(lines[i].ID); ok {
				lines[i].ReceivedQuantity = l.ReceivedQuantity
				lines[i].ReceivedBase = l.ReceivedBase
				lines[i].Status = l.Status
			}
		}
		stored.Lines = lines
		stored.Status = po.Status
		stored.Touch()
		st.orders[po.ID] = stored
		return nil
	})
}

func (r *PurchaseOrderRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	var res domain.ListResult[*purchase_order.PurchaseOrder]
	err := r.s.do(ctx, func(st *state) error {
		search := strings.ToLower(filter.Search)
		all := make([]*purchase_order.PurchaseOrder, 0, len(st.orders))
		for _, po := range st.orders {
			if filter.Status != "" && string(po.Status) != filter.Status {
				continue
			}
			if filter.WarehouseID != nil && po.WarehouseID != *filter.WarehouseID {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(po.Number), search) {
				continue
			}
			all = append(all, copyOrder(po))
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Number > all[j].Number })
		res = domain.Page(all, filter)
		return nil
	})
	return res, err
}
