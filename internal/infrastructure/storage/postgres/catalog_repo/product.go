// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/infrastructure/storage/postgres"
)

const (
	productTable = "cat_products"
	uomTable     = "cat_product_uoms"

	productCodeConstraint = "uq_cat_products_code"
	uomNameConstraint     = "uq_cat_product_uoms_name"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager  *postgres.TxManager
	batch      *postgres.BatchExecutor
	selectCols []string
	uomCols    []string
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager:  txManager,
		batch:      postgres.NewBatchExecutor(txManager),
		selectCols: postgres.ExtractDBColumns[product.Product](),
		uomCols:    postgres.ExtractDBColumns[product.ProductUOM](),
	}
}

func (r *ProductRepo) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().Select(r.selectCols...).From(productTable)
}

// Create inserts the product and its units. Runs inside the caller's transaction.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := postgres.InsertStruct(productTable, r.selectCols, p).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, productCodeConstraint) {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		return fmt.Errorf("insert %s: %w", productTable, err)
	}

	if len(p.UOMs) == 0 {
		return nil
	}
	queries := make([]postgres.BatchQuery, 0, len(p.UOMs))
	for _, u := range p.UOMs {
		sql, args, err := postgres.InsertStruct(uomTable, r.uomCols, u).ToSql()
		if err != nil {
			return fmt.Errorf("build uom insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert %s: %w", uomTable, err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": productID}), productID.String())
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"code": code}), code)
}

// GetForUpdate locks the product row until the transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": productID}).Suffix("FOR UPDATE")
	return r.getOne(ctx, q, productID.String())
}

func (r *ProductRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, ref string) (*product.Product, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	p := &product.Product{}
	if err := pgxscan.Get(ctx, querier, p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewProductNotFound(ref)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if err := r.loadUOMs(ctx, []*product.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepo) uomSelect(productIDs []id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.uomCols...).
		From(uomTable).
		Where(squirrel.Eq{"product_id": productIDs}).
		OrderBy("product_id", "name")
}

func (r *ProductRepo) loadUOMs(ctx context.Context, products []*product.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]id.ID, 0, len(products))
	byID := make(map[id.ID]*product.Product, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.UOMs = []product.ProductUOM{}
	}

	sql, args, err := r.uomSelect(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build uom query: %w", err)
	}

	var uoms []product.ProductUOM
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &uoms, sql, args...); err != nil {
		return fmt.Errorf("load uoms: %w", err)
	}
	for _, u := range uoms {
		if p, ok := byID[u.ProductID]; ok {
			p.UOMs = append(p.UOMs, u)
		}
	}
	return nil
}

func (r *ProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	sql, args, err := postgres.Builder().
		Select("1").
		Prefix("SELECT EXISTS (").
		From(productTable).
		Where(squirrel.Eq{"code": code}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by code: %w", err)
	}
	return exists, nil
}

// UpdateAverageCost stores a new average and bumps the row version.
func (r *ProductRepo) UpdateAverageCost(ctx context.Context, productID id.ID, avg decimal.Decimal) error {
	sql, args, err := postgres.Builder().
		Update(productTable).
		Set("average_cost_price", avg).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update average cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewProductNotFound(productID.String())
	}
	return nil
}

func (r *ProductRepo) AddUOM(ctx context.Context, u product.ProductUOM) error {
	sql, args, err := postgres.InsertStruct(uomTable, r.uomCols, u).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, uomNameConstraint) {
			return apperror.NewDuplicate("product uom", "name", u.Name)
		}
		return fmt.Errorf("insert %s: %w", uomTable, err)
	}
	return nil
}

func (r *ProductRepo) listQuery(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	return q
}

// List returns products ordered by code.
func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	filter = filter.Normalize()
	result := domain.ListResult[*product.Product]{
		Items:  []*product.Product{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)
	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := postgres.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := q.OrderBy("code").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	if err := r.loadUOMs(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}
