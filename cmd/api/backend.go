package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/stocksync/internal/application/ledger"
	"github.com/jhoicas/stocksync/internal/application/orders"
	"github.com/jhoicas/stocksync/internal/domain/repository"
	"github.com/jhoicas/stocksync/internal/infrastructure/postgres"
	"github.com/jhoicas/stocksync/internal/infrastructure/sqlite"
	"github.com/jhoicas/stocksync/pkg/config"
)

// txRunner transacciones del libro y de la deducción de pedidos.
type txRunner interface {
	ledger.TxRunner
	orders.TxRunner
}

// backend repositorios de un mismo motor de persistencia.
type backend struct {
	accounts   repository.AccountRepository
	products   repository.ProductRepository
	stock      repository.StockRepository
	sales      repository.SaleRepository
	orders     repository.OrderRepository
	locks      repository.SyncLockRepository
	watermarks repository.WatermarkRepository
	tx         txRunner
	close      func()
}

// openBackend abre PostgreSQL o SQLite según DB_DRIVER y aplica el esquema.
func openBackend(ctx context.Context, cfg config.DBConfig) (*backend, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("crear carpeta de SQLite: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{
			accounts:   sqlite.NewAccountRepository(db),
			products:   sqlite.NewProductRepository(db),
			stock:      sqlite.NewStockRepository(db),
			sales:      sqlite.NewSaleRepository(db),
			orders:     sqlite.NewOrderRepository(db),
			locks:      sqlite.NewSyncLockRepository(db),
			watermarks: sqlite.NewWatermarkRepository(db),
			tx:         sqlite.NewTxRunner(db),
			close:      func() { _ = db.Close() },
		}, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{
			accounts:   postgres.NewAccountRepository(pool),
			products:   postgres.NewProductRepository(pool),
			stock:      postgres.NewStockRepository(pool),
			sales:      postgres.NewSaleRepository(pool),
			orders:     postgres.NewOrderRepository(pool),
			locks:      postgres.NewSyncLockRepository(pool),
			watermarks: postgres.NewWatermarkRepository(pool),
			tx:         postgres.NewTxRunner(pool),
			close:      pool.Close,
		}, nil
	}
}
