package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable     = "doc_purchase_orders"
	purchaseOrderLinesTable = "doc_purchase_order_lines"
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase_order.PurchaseOrder]
	batch    *postgres.BatchExecutor
	lineCols []string
}

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseOrdersTable,
			postgres.ExtractDBColumns[purchase_order.PurchaseOrder](),
			func() *purchase_order.PurchaseOrder { return &purchase_order.PurchaseOrder{} },
			func(ref string) error { return apperror.NewPurchaseOrderNotFound(ref) },
		),
		batch:    postgres.NewBatchExecutor(txManager),
		lineCols: postgres.ExtractDBColumns[purchase_order.Line](),
	}
}

// Create inserts the order and its lines.
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *purchase_order.PurchaseOrder) error {
	if err := r.insertHeader(ctx, po); err != nil {
		return err
	}

	queries := make([]postgres.BatchQuery, 0, len(po.Lines))
	for _, l := range po.Lines {
		sql, args, err := postgres.InsertStruct(purchaseOrderLinesTable, r.lineCols, l).ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.get(ctx, orderID, false)
}

// GetForUpdate locks the order header. Lines are only changed together
// with the header, so the header lock covers them.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.get(ctx, orderID, true)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, orderID id.ID, forUpdate bool) (*purchase_order.PurchaseOrder, error) {
	po, err := r.getHeader(ctx, squirrel.Eq{"id": orderID}, orderID.String(), forUpdate)
	if err != nil {
		return nil, err
	}
	lines, err := r.getLines(ctx, []id.ID{po.ID})
	if err != nil {
		return nil, err
	}
	po.Lines = lines[po.ID]
	return po, nil
}

func (r *PurchaseOrderRepo) linesQuery(orderIDs []id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.lineCols...).
		From(purchaseOrderLinesTable).
		Where(squirrel.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "line_no")
}

func (r *PurchaseOrderRepo) getLines(ctx context.Context, orderIDs []id.ID) (map[id.ID][]purchase_order.Line, error) {
	sql, args, err := r.linesQuery(orderIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase_order.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	byOrder := make(map[id.ID][]purchase_order.Line, len(orderIDs))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	return byOrder, nil
}

func (r *PurchaseOrderRepo) FindOrderIDByLine(ctx context.Context, lineID id.ID) (id.ID, error) {
	sql, args, err := postgres.Builder().
		Select("order_id").
		From(purchaseOrderLinesTable).
		Where(squirrel.Eq{"id": lineID}).
		ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build query: %w", err)
	}

	var orderID id.ID
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&orderID)
	if err == pgx.ErrNoRows {
		return id.Nil(), apperror.NewPurchaseOrderNotFound(lineID.String()).
			WithDetail("entity", "purchase order line")
	}
	if err != nil {
		return id.Nil(), fmt.Errorf("find order by line: %w", err)
	}
	return orderID, nil
}

func (r *PurchaseOrderRepo) progressQueries(po *purchase_order.PurchaseOrder) ([]postgres.BatchQuery, error) {
	queries := make([]postgres.BatchQuery, 0, len(po.Lines)+1)

	sql, args, err := postgres.Builder().
		Update(purchaseOrdersTable).
		Set("status", po.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": po.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})

	for _, l := range po.Lines {
		sql, args, err := postgres.Builder().
			Update(purchaseOrderLinesTable).
			Set("received_quantity", l.ReceivedQuantity).
			Set("received_base", l.ReceivedBase).
			Set("status", l.Status).
			Where(squirrel.Eq{"id": l.ID, "order_id": po.ID}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build line update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	return queries, nil
}

// SaveProgress writes received quantities and statuses in one round-trip.
func (r *PurchaseOrderRepo) SaveProgress(ctx context.Context, po *purchase_order.PurchaseOrder) error {
	queries, err := r.progressQueries(po)
	if err != nil {
		return err
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *PurchaseOrderRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	result, err := r.list(ctx, r.listQuery(filter), filter)
	if err != nil || len(result.Items) == 0 {
		return result, err
	}

	ids := make([]id.ID, 0, len(result.Items))
	for _, po := range result.Items {
		ids = append(ids, po.ID)
	}
	lines, err := r.getLines(ctx, ids)
	if err != nil {
		return result, err
	}
	for _, po := range result.Items {
		po.Lines = lines[po.ID]
	}
	return result, nil
}
