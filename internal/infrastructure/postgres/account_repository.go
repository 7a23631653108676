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

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo cuentas de marketplace sobre PostgreSQL.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador de cuentas.
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// ListActive devuelve las cuentas activas ordenadas por id.
func (r *AccountRepo) ListActive(ctx context.Context) ([]*entity.MarketplaceAccount, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, access_token, active, created_at, updated_at
		FROM marketplace_accounts WHERE active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var list []*entity.MarketplaceAccount
	for rows.Next() {
		var a entity.MarketplaceAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.AccessToken, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// GetByID obtiene una cuenta; ErrNotFound si no existe.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.MarketplaceAccount, error) {
	var a entity.MarketplaceAccount
	err := r.q.QueryRow(ctx, `
		SELECT id, name, access_token, active, created_at, updated_at
		FROM marketplace_accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.AccessToken, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// Upsert registra o actualiza nombre, token y estado de la cuenta.
func (r *AccountRepo) Upsert(ctx context.Context, a *entity.MarketplaceAccount) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO marketplace_accounts (id, name, access_token, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.Name, a.AccessToken, a.Active, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}
