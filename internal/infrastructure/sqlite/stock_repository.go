package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo stock por SKU y bodega sobre SQLite.
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador. Pasar db o tx.
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func (r *StockRepo) Get(ctx context.Context, sku, warehouse string) (*entity.Stock, error) {
	var (
		s       entity.Stock
		updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT sku, warehouse, quantity, updated_at
		FROM stock WHERE sku = ? AND warehouse = ?`, sku, warehouse).
		Scan(&s.SKU, &s.Warehouse, &s.Quantity, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &entity.Stock{SKU: sku, Warehouse: warehouse}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	s.UpdatedAt = fromNanos(updated)
	return &s, nil
}

// GetForUpdate en SQLite equivale a Get: la única conexión ya serializa las transacciones.
func (r *StockRepo) GetForUpdate(ctx context.Context, sku, warehouse string) (*entity.Stock, error) {
	return r.Get(ctx, sku, warehouse)
}

func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	if stock.Quantity < 0 {
		return domain.ErrInsufficientStock
	}
	updated := stock.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO stock (sku, warehouse, quantity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sku, warehouse) DO UPDATE SET
			quantity = excluded.quantity,
			updated_at = excluded.updated_at`,
		stock.SKU, stock.Warehouse, stock.Quantity, toNanos(updated))
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

func (r *StockRepo) ListBySKU(ctx context.Context, sku string) ([]*entity.Stock, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT sku, warehouse, quantity, updated_at
		FROM stock WHERE sku = ? ORDER BY warehouse`, sku)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.Stock
	for rows.Next() {
		var (
			s       entity.Stock
			updated int64
		)
		if err := rows.Scan(&s.SKU, &s.Warehouse, &s.Quantity, &updated); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		s.UpdatedAt = fromNanos(updated)
		list = append(list, &s)
	}
	return list, rows.Err()
}

func (r *StockRepo) TotalBySKU(ctx context.Context, sku string) (int, error) {
	var total int64
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock WHERE sku = ?`, sku).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total stock: %w", err)
	}
	return int(total), nil
}
