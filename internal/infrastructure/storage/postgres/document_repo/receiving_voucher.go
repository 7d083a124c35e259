package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/infrastructure/storage/postgres"
)

const (
	vouchersTable     = "doc_receiving_vouchers"
	voucherItemsTable = "doc_receiving_voucher_items"
)

// VoucherRepo implements receiving.Repository.
type VoucherRepo struct {
	*BaseDocumentRepo[*receiving.Voucher]
	inserter *postgres.BatchInserter
	itemCols []string
}

var _ receiving.Repository = (*VoucherRepo)(nil)

// NewVoucherRepo creates a new receiving voucher repository.
func NewVoucherRepo(txManager *postgres.TxManager) *VoucherRepo {
	return &VoucherRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			vouchersTable,
			postgres.ExtractDBColumns[receiving.Voucher](),
			func() *receiving.Voucher { return &receiving.Voucher{} },
			func(ref string) error { return apperror.NewVoucherNotFound(ref) },
		),
		inserter: postgres.NewBatchInserter(txManager),
		itemCols: postgres.ExtractDBColumns[receiving.Item](),
	}
}

// Create inserts the voucher and copies its items in.
func (r *VoucherRepo) Create(ctx context.Context, v *receiving.Voucher) error {
	if err := r.insertHeader(ctx, v); err != nil {
		return err
	}
	if _, err := postgres.CopyStructs(ctx, r.inserter, voucherItemsTable, r.itemCols, v.Items); err != nil {
		return fmt.Errorf("copy voucher items: %w", err)
	}
	return nil
}

func (r *VoucherRepo) GetByID(ctx context.Context, voucherID id.ID) (*receiving.Voucher, error) {
	return r.get(ctx, voucherID, false)
}

func (r *VoucherRepo) GetForUpdate(ctx context.Context, voucherID id.ID) (*receiving.Voucher, error) {
	return r.get(ctx, voucherID, true)
}

func (r *VoucherRepo) get(ctx context.Context, voucherID id.ID, forUpdate bool) (*receiving.Voucher, error) {
	v, err := r.getHeader(ctx, squirrel.Eq{"id": voucherID}, voucherID.String(), forUpdate)
	if err != nil {
		return nil, err
	}
	items, err := r.getItems(ctx, []id.ID{v.ID})
	if err != nil {
		return nil, err
	}
	v.Items = items[v.ID]
	return v, nil
}

func (r *VoucherRepo) itemsQuery(voucherIDs []id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.itemCols...).
		From(voucherItemsTable).
		Where(squirrel.Eq{"voucher_id": voucherIDs}).
		OrderBy("voucher_id", "line_no")
}

func (r *VoucherRepo) getItems(ctx context.Context, voucherIDs []id.ID) (map[id.ID][]receiving.Item, error) {
	sql, args, err := r.itemsQuery(voucherIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []receiving.Item
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	byVoucher := make(map[id.ID][]receiving.Item, len(voucherIDs))
	for _, it := range items {
		byVoucher[it.VoucherID] = append(byVoucher[it.VoucherID], it)
	}
	return byVoucher, nil
}

func (r *VoucherRepo) cancelQuery(v *receiving.Voucher) squirrel.UpdateBuilder {
	return postgres.Builder().
		Update(vouchersTable).
		Set("status", v.Status).
		Set("cancelled_at", v.CancelledAt).
		Set("cancel_reason", v.CancelReason).
		Set("updated_at", v.UpdatedAt).
		Set("version", v.Version).
		Where(squirrel.Eq{"id": v.ID}).
		Where(squirrel.NotEq{"status": receiving.StatusCancelled})
}

// MarkCancelled persists the cancel transition. A voucher that is already
// cancelled in the database is reported as such.
func (r *VoucherRepo) MarkCancelled(ctx context.Context, v *receiving.Voucher) error {
	sql, args, err := r.cancelQuery(v).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("cancel voucher: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.getHeader(ctx, squirrel.Eq{"id": v.ID}, v.ID.String(), false); err != nil {
		return err
	}
	return apperror.NewAlreadyCancelled("receiving voucher", v.ID.String())
}

func (r *VoucherRepo) voucherListQuery(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.listQuery(filter)
	if filter.ProductID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+voucherItemsTable+" i WHERE i.voucher_id = "+vouchersTable+".id AND i.product_id = ?)",
			*filter.ProductID,
		))
	}
	return q
}

func (r *VoucherRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*receiving.Voucher], error) {
	result, err := r.list(ctx, r.voucherListQuery(filter), filter)
	if err != nil || len(result.Items) == 0 {
		return result, err
	}

	ids := make([]id.ID, 0, len(result.Items))
	for _, v := range result.Items {
		ids = append(ids, v.ID)
	}
	items, err := r.getItems(ctx, ids)
	if err != nil {
		return result, err
	}
	for _, v := range result.Items {
		v.Items = items[v.ID]
	}
	return result, nil
}
