// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
	"stockcost/internal/domain/registers/stock"
	"stockcost/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

var balanceCols = []string{"warehouse_id", "product_id", "quantity", "updated_at"}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager    *postgres.TxManager
	inserter     *postgres.BatchInserter
	movementCols []string
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager:    txManager,
		inserter:     postgres.NewBatchInserter(txManager),
		movementCols: postgres.ExtractDBColumns[entity.StockMovement](),
	}
}

// Increment upserts the balance row and returns the new quantity.
func (r *StockRepo) Increment(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity) (types.Quantity, error) {
	var newQty types.Quantity
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO reg_stock_balances (warehouse_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (warehouse_id, product_id) DO UPDATE
		SET quantity = reg_stock_balances.quantity + EXCLUDED.quantity,
		    updated_at = NOW()
		RETURNING quantity
	`, warehouseID, productID, qty).Scan(&newQty)
	if err != nil {
		return newQty, fmt.Errorf("increment balance: %w", err)
	}
	return newQty, nil
}

// DecrementIfAvailable subtracts qty in a single guarded UPDATE. A missing
// row or an insufficient balance leaves ok false.
func (r *StockRepo) DecrementIfAvailable(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity) (types.Quantity, bool, error) {
	var newQty types.Quantity
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		UPDATE reg_stock_balances
		SET quantity = quantity - $3,
		    updated_at = NOW()
		WHERE warehouse_id = $1 AND product_id = $2 AND quantity >= $3
		RETURNING quantity
	`, warehouseID, productID, qty).Scan(&newQty)
	if err == pgx.ErrNoRows {
		return types.Zero(), false, nil
	}
	if err != nil {
		return newQty, false, fmt.Errorf("decrement balance: %w", err)
	}
	return newQty, true, nil
}

func (r *StockRepo) balanceQuery(warehouseID, productID id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{
			"warehouse_id": warehouseID,
			"product_id":   productID,
		}).
		Limit(1)
}

func (r *StockRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return r.getBalance(ctx, r.balanceQuery(warehouseID, productID), warehouseID, productID)
}

// GetBalanceForUpdate returns balance with pessimistic lock.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	q := r.balanceQuery(warehouseID, productID).Suffix("FOR UPDATE")
	return r.getBalance(ctx, q, warehouseID, productID)
}

func (r *StockRepo) getBalance(ctx context.Context, q squirrel.SelectBuilder, warehouseID, productID id.ID) (entity.StockBalance, error) {
	var balance entity.StockBalance

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBalance{
				WarehouseID: warehouseID,
				ProductID:   productID,
				Quantity:    types.Zero(),
			}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *StockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error) {
	sql, args, err := postgres.Builder().
		Select(balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("warehouse_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	balances := []entity.StockBalance{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// TotalByProduct sums balances of all warehouses.
func (r *StockRepo) TotalByProduct(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql, args, err := postgres.Builder().
		Select("COALESCE(SUM(quantity), 0)").
		From(stockBalancesTable).
		Where(squirrel.Eq{"product_id": productID}).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var total types.Quantity
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("total by product: %w", err)
	}
	return total, nil
}

// CreateMovements appends movements using COPY.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if _, err := postgres.CopyStructs(ctx, r.inserter, stockMovementsTable, r.movementCols, movements); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	return nil
}

func (r *StockRepo) GetMovementsByReference(ctx context.Context, referenceID id.ID) ([]entity.StockMovement, error) {
	q := postgres.Builder().
		Select(r.movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"reference_id": referenceID}).
		OrderBy("created_at", "id")
	return r.selectMovements(ctx, q)
}

func (r *StockRepo) historyQuery(productID id.ID, filter stock.MovementFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(r.movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID})

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *filter.Direction})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *StockRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	return r.selectMovements(ctx, r.historyQuery(productID, filter))
}

func (r *StockRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]entity.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := []entity.StockMovement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}
