package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo log de ventas append-only sobre SQLite.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar db o tx.
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sales (id, sku, warehouse, quantity, unit_price, order_id, sold_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SKU, s.Warehouse, s.Quantity, s.UnitPrice.String(), s.OrderID, toNanos(s.SoldAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) List(ctx context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	var (
		conds []string
		args  []any
	)
	if f.SKU != "" {
		conds = append(conds, "sku = ?")
		args = append(args, f.SKU)
	}
	if f.From != nil {
		conds = append(conds, "sold_at >= ?")
		args = append(args, toNanos(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "sold_at < ?")
		args = append(args, toNanos(*f.To))
	}
	query := `SELECT id, sku, warehouse, quantity, unit_price, order_id, sold_at FROM sales`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sold_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	var list []*entity.Sale
	for rows.Next() {
		var (
			s      entity.Sale
			soldAt int64
		)
		if err := rows.Scan(&s.ID, &s.SKU, &s.Warehouse, &s.Quantity, &s.UnitPrice, &s.OrderID, &soldAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		s.SoldAt = fromNanos(soldAt)
		list = append(list, &s)
	}
	return list, rows.Err()
}
