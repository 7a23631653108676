package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos del marketplace sobre SQLite; las líneas se guardan como JSON.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

func (r *OrderRepo) GetByExternalID(ctx context.Context, accountID, externalID string) (*entity.Order, error) {
	var (
		o                        entity.Order
		lines                    string
		updated, created, synced int64
		deducted                 int64
		deductedAt               sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT external_id, account_id, status, buyer_login, lines, updated_at,
			stock_deducted, deducted_at, created_at, synced_at
		FROM orders WHERE account_id = ? AND external_id = ?`, accountID, externalID).
		Scan(&o.ExternalID, &o.AccountID, &o.Status, &o.BuyerLogin, &lines, &updated,
			&deducted, &deductedAt, &created, &synced)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := json.Unmarshal([]byte(lines), &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	o.UpdatedAt = fromNanos(updated)
	o.CreatedAt = fromNanos(created)
	o.SyncedAt = fromNanos(synced)
	o.StockDeducted = deducted != 0
	o.DeductedAt = fromNullNanos(deductedAt)
	return &o, nil
}

// GetForUpdate equivale a GetByExternalID: la conexión única serializa la transacción.
func (r *OrderRepo) GetForUpdate(ctx context.Context, accountID, externalID string) (*entity.Order, error) {
	return r.GetByExternalID(ctx, accountID, externalID)
}

func (r *OrderRepo) Insert(ctx context.Context, o *entity.Order) error {
	lines, err := json.Marshal(orderLines(o.Lines))
	if err != nil {
		return fmt.Errorf("marshal order lines: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO orders (external_id, account_id, status, buyer_login, lines, updated_at,
			stock_deducted, deducted_at, created_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ExternalID, o.AccountID, o.Status, o.BuyerLogin, string(lines), toNanos(o.UpdatedAt),
		boolToInt(o.StockDeducted), nullableNanos(o.DeductedAt), toNanos(o.CreatedAt), toNanos(o.SyncedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Update(ctx context.Context, o *entity.Order) (bool, error) {
	lines, err := json.Marshal(orderLines(o.Lines))
	if err != nil {
		return false, fmt.Errorf("marshal order lines: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET status = ?, buyer_login = ?, lines = ?, updated_at = ?, synced_at = ?
		WHERE account_id = ? AND external_id = ? AND updated_at <= ?`,
		o.Status, o.BuyerLogin, string(lines), toNanos(o.UpdatedAt), toNanos(o.SyncedAt),
		o.AccountID, o.ExternalID, toNanos(o.UpdatedAt))
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	return n > 0, nil
}

func (r *OrderRepo) MarkDeducted(ctx context.Context, accountID, externalID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET stock_deducted = 1, deducted_at = ?
		WHERE account_id = ? AND external_id = ? AND stock_deducted = 0`, toNanos(at), accountID, externalID)
	if err != nil {
		return fmt.Errorf("mark order deducted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark order deducted: %w", err)
	}
	if n == 0 {
		return domain.ErrConflict
	}
	return nil
}

func orderLines(lines []entity.OrderLine) []entity.OrderLine {
	if lines == nil {
		return []entity.OrderLine{}
	}
	return lines
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
