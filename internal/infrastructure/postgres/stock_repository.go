package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un SKU en una bodega (cantidad 0 si no hay fila).
func (r *StockRepo) Get(ctx context.Context, sku, warehouse string) (*entity.Stock, error) {
	query := `
		SELECT sku, warehouse, quantity, updated_at
		FROM stock WHERE sku = $1 AND warehouse = $2`
	return r.scanOne(ctx, query, sku, warehouse)
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
// Si la fila no existe se inserta con cantidad 0 antes de bloquearla: así dos restocks concurrentes
// sobre una bodega nueva también quedan serializados.
func (r *StockRepo) GetForUpdate(ctx context.Context, sku, warehouse string) (*entity.Stock, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock (sku, warehouse, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (sku, warehouse) DO NOTHING`, sku, warehouse)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}
	query := `
		SELECT sku, warehouse, quantity, updated_at
		FROM stock WHERE sku = $1 AND warehouse = $2
		FOR UPDATE`
	return r.scanOne(ctx, query, sku, warehouse)
}

// Upsert inserta o actualiza la cantidad en stock (por SKU y bodega).
func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	if stock.Quantity < 0 {
		return domain.ErrInsufficientStock
	}
	query := `
		INSERT INTO stock (sku, warehouse, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sku, warehouse)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(ctx, query, stock.SKU, stock.Warehouse, stock.Quantity)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// ListBySKU lista las filas de stock del SKU ordenadas por bodega.
func (r *StockRepo) ListBySKU(ctx context.Context, sku string) ([]*entity.Stock, error) {
	rows, err := r.q.Query(ctx, `
		SELECT sku, warehouse, quantity, updated_at
		FROM stock WHERE sku = $1 ORDER BY warehouse`, sku)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.Stock
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.SKU, &s.Warehouse, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// TotalBySKU suma la cantidad en todas las bodegas.
func (r *StockRepo) TotalBySKU(ctx context.Context, sku string) (int, error) {
	var total int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock WHERE sku = $1`, sku).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total stock: %w", err)
	}
	return int(total), nil
}

func (r *StockRepo) scanOne(ctx context.Context, query, sku, warehouse string) (*entity.Stock, error) {
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, sku, warehouse).Scan(&s.SKU, &s.Warehouse, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{SKU: sku, Warehouse: warehouse}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}
