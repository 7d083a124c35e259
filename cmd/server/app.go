package main

import (
	"context"
	"fmt"

	"stockcost/internal/config"
	"stockcost/internal/core/idempotency"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/domain/registers/stock"
	v1 "stockcost/internal/infrastructure/http/v1"
	"stockcost/internal/infrastructure/http/v1/handlers"
	"stockcost/internal/infrastructure/storage/memory"
	"stockcost/internal/infrastructure/storage/postgres"
	"stockcost/internal/infrastructure/storage/postgres/catalog_repo"
	"stockcost/internal/infrastructure/storage/postgres/document_repo"
	"stockcost/internal/infrastructure/storage/postgres/register_repo"
	"stockcost/pkg/logger"
	pkgnumerator "stockcost/pkg/numerator"
)

// app holds the wired services of one storage driver.
type app struct {
	services    v1.Services
	db          handlers.Pinger
	idempotency idempotency.Store
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return newMemoryApp(cfg, log), nil
	case config.DriverPostgres:
		return newPostgresApp(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newPostgresApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	if cfg.DBAutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("database migrations applied")
	}

	txManager := postgres.NewTxManager(pool)
	numbers := pkgnumerator.New(pool)

	products := catalog_repo.NewProductRepo(txManager)
	orders := document_repo.NewPurchaseOrderRepo(txManager)
	vouchers := document_repo.NewVoucherRepo(txManager)
	stockSvc := stock.NewService(register_repo.NewStockRepo(txManager), products, txManager)

	a := &app{
		services: v1.Services{
			Products:       product.NewService(products, txManager, numbers),
			PurchaseOrders: purchase_order.NewService(orders, products, numbers, txManager),
			Receiving: receiving.NewService(vouchers, products, orders, stockSvc,
				postgres.NewOutboxPublisher(txManager), numbers, txManager),
			Stock: stockSvc,
		},
		db:      pool,
		closers: []func(){pool.Close},
	}
	if cfg.IdempotencyEnabled {
		a.idempotency = postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)
	}
	return a, nil
}

func newMemoryApp(cfg config.Config, log *logger.Logger) *app {
	store := memory.New()
	numbers := memory.NewNumerator()
	stockSvc := stock.NewService(store.Stock(), store.Products(), store)

	log.Warn("using in-memory storage, data is lost on restart")

	a := &app{
		services: v1.Services{
			Products:       product.NewService(store.Products(), store, numbers),
			PurchaseOrders: purchase_order.NewService(store.PurchaseOrders(), store.Products(), numbers, store),
			Receiving: receiving.NewService(store.Vouchers(), store.Products(), store.PurchaseOrders(),
				stockSvc, store.Events(), numbers, store),
			Stock: stockSvc,
		},
	}
	if cfg.IdempotencyEnabled {
		a.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}
	return a
}
