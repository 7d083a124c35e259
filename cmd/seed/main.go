// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"stockcost/internal/config"
	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/infrastructure/storage/postgres"
	"stockcost/internal/infrastructure/storage/postgres/catalog_repo"
	"stockcost/internal/infrastructure/storage/postgres/document_repo"
	"stockcost/pkg/logger"
	pkgnumerator "stockcost/pkg/numerator"
)

const demoProductCode = "WATER-05"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to migrate database", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	numbers := pkgnumerator.New(pool)
	productRepo := catalog_repo.NewProductRepo(txManager)

	products := product.NewService(productRepo, txManager, numbers)
	orders := purchase_order.NewService(document_repo.NewPurchaseOrderRepo(txManager), productRepo, numbers, txManager)

	water, err := seedProduct(ctx, products, log)
	if err != nil {
		log.Fatalw("failed to seed product", "error", err)
	}

	po, err := orders.Create(ctx, purchase_order.CreateInput{
		SupplierID:  id.New(),
		WarehouseID: id.New(),
		Comment:     "demo order",
		Lines: []purchase_order.CreateLineInput{
			{ProductID: water.ID, UOM: "case", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(240)},
		},
	})
	if err != nil {
		log.Fatalw("failed to seed purchase order", "error", err)
	}

	log.Infow("purchase order created",
		"id", po.ID,
		"number", po.Number,
		"warehouse_id", po.WarehouseID,
		"line_id", po.Lines[0].ID,
	)
	log.Info("seeding completed successfully")
}

// seedProduct returns the demo product, creating it on first run.
func seedProduct(ctx context.Context, products *product.Service, log *logger.Logger) (*product.Product, error) {
	existing, err := products.GetByCode(ctx, demoProductCode)
	if err == nil {
		log.Infow("demo product already exists", "code", demoProductCode, "id", existing.ID)
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check product exists: %w", err)
	}

	p, err := products.Create(ctx, product.CreateInput{
		Code:         demoProductCode,
		Name:         "Mineral water 0.5l",
		BaseUOM:      "bottle",
		SellingPrice: decimal.NewFromInt(15),
		UOMs: []product.UOMInput{
			{Name: "case", ConversionFactor: decimal.NewFromInt(24), SellingPrice: decimal.NewFromInt(330)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	log.Infow("demo product created", "code", p.Code, "id", p.ID)
	return p, nil
}
