package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/documents/receiving"
)

// VoucherRepo implements receiving.Repository.
type VoucherRepo struct{ s *Store }

var _ receiving.Repository = (*VoucherRepo)(nil)

func copyVoucher(v receiving.Voucher) *receiving.Voucher {
	v.Items = slices.Clone(v.Items)
	if v.CancelledAt != nil {
		at := *v.CancelledAt
		v.CancelledAt = &at
	}
	return &v
}

func (r *VoucherRepo) Create(ctx context.Context, v *receiving.Voucher) error {
	return r.s.do(ctx, func(st *state) error {
		if _, exists := st.vouchers[v.ID]; exists {
			return apperror.NewDuplicate("receiving voucher", "id", v.ID.String())
		}
		st.vouchers[v.ID] = *copyVoucher(*v)
		return nil
	})
}

func (r *VoucherRepo) GetByID(ctx context.Context, voucherID id.ID) (*receiving.Voucher, error) {
	var out *receiving.Voucher
	err := r.s.do(ctx, func(st *state) error {
		v, ok := st.vouchers[voucherID]
		if !ok {
			return apperror.NewVoucherNotFound(voucherID.String())
		}
		out = copyVoucher(v)
		return nil
	})
	return out, err
}

func (r *VoucherRepo) GetForUpdate(ctx context.Context, voucherID id.ID) (*receiving.Voucher, error) {
	return r.GetByID(ctx, voucherID)
}

func (r *VoucherRepo) MarkCancelled(ctx context.Context, v *receiving.Voucher) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.vouchers[v.ID]
		if !ok {
			return apperror.NewVoucherNotFound(v.ID.String())
		}
		if stored.Status == receiving.StatusCancelled {
			return apperror.NewAlreadyCancelled("receiving voucher", v.ID.String())
		}
		cancelled := copyVoucher(*v)
		stored.Status = cancelled.Status
		stored.CancelledAt = cancelled.CancelledAt
		stored.CancelReason = cancelled.CancelReason
		stored.UpdatedAt = cancelled.UpdatedAt
		stored.Version = cancelled.Version
		st.vouchers[v.ID] = stored
		return nil
	})
}

func (r *VoucherRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*receiving.Voucher], error) {
	var res domain.ListResult[*receiving.Voucher]
	err := r.s.do(ctx, func(st *state) error {
		search := strings.ToLower(filter.Search)
		all := make([]*receiving.Voucher, 0, len(st.vouchers))
		for _, v := range st.vouchers {
			if filter.Status != "" && string(v.Status) != filter.Status {
				continue
			}
			if filter.WarehouseID != nil && v.WarehouseID != *filter.WarehouseID {
				continue
			}
			if filter.ProductID != nil && !slices.ContainsFunc(v.Items, func(it receiving.Item) bool {
				return it.ProductID == *filter.ProductID
			}) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(v.Number), search) {
				continue
			}
			all = append(all, copyVoucher(v))
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Number > all[j].Number })
		res = domain.Page(all, filter)
		return nil
	})
	return res, err
}
