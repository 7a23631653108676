package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos del marketplace sobre PostgreSQL. Las líneas se guardan en JSONB.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador de pedidos.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `external_id, account_id, status, buyer_login, lines, updated_at,
	stock_deducted, deducted_at, created_at, synced_at`

func (r *OrderRepo) GetByExternalID(ctx context.Context, accountID, externalID string) (*entity.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE account_id = $1 AND external_id = $2`, accountID, externalID)
}

// GetForUpdate bloquea la fila del pedido (SELECT FOR UPDATE).
func (r *OrderRepo) GetForUpdate(ctx context.Context, accountID, externalID string) (*entity.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE account_id = $1 AND external_id = $2 FOR UPDATE`, accountID, externalID)
}

// Insert guarda un pedido nuevo; ErrDuplicate si ya existe.
func (r *OrderRepo) Insert(ctx context.Context, o *entity.Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshal order lines: %w", err)
	}
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.q.Exec(ctx, query,
		o.ExternalID, o.AccountID, o.Status, o.BuyerLogin, lines, o.UpdatedAt,
		o.StockDeducted, nullableTime(o.DeductedAt), o.CreatedAt, o.SyncedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Update sobrescribe estado, comprador y líneas si el pedido entrante no es más antiguo que el guardado.
func (r *OrderRepo) Update(ctx context.Context, o *entity.Order) (bool, error) {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return false, fmt.Errorf("marshal order lines: %w", err)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $3, buyer_login = $4, lines = $5, updated_at = $6, synced_at = $7
		WHERE account_id = $1 AND external_id = $2 AND updated_at <= $6`,
		o.AccountID, o.ExternalID, o.Status, o.BuyerLogin, lines, o.UpdatedAt, o.SyncedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkDeducted cambia la bandera false -> true. ErrConflict si ya estaba deducido.
func (r *OrderRepo) MarkDeducted(ctx context.Context, accountID, externalID string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET stock_deducted = true, deducted_at = $3
		WHERE account_id = $1 AND external_id = $2 AND stock_deducted = false`, accountID, externalID, at)
	if err != nil {
		return fmt.Errorf("mark order deducted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *OrderRepo) getOne(ctx context.Context, query, accountID, externalID string) (*entity.Order, error) {
	var (
		o     entity.Order
		lines []byte
	)
	err := r.q.QueryRow(ctx, query, accountID, externalID).Scan(
		&o.ExternalID, &o.AccountID, &o.Status, &o.BuyerLogin, &lines, &o.UpdatedAt,
		&o.StockDeducted, &o.DeductedAt, &o.CreatedAt, &o.SyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &o.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal order lines: %w", err)
		}
	}
	return &o, nil
}
