package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo cuentas de marketplace sobre SQLite.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador.
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

func (r *AccountRepo) ListActive(ctx context.Context) ([]*entity.MarketplaceAccount, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, access_token, active, created_at, updated_at
		FROM marketplace_accounts WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var list []*entity.MarketplaceAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.MarketplaceAccount, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, access_token, active, created_at, updated_at
		FROM marketplace_accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) Upsert(ctx context.Context, a *entity.MarketplaceAccount) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO marketplace_accounts (id, name, access_token, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			access_token = excluded.access_token,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		a.ID, a.Name, a.AccessToken, boolToInt(a.Active), toNanos(a.CreatedAt), toNanos(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*entity.MarketplaceAccount, error) {
	var (
		a                entity.MarketplaceAccount
		active           int64
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.AccessToken, &active, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.Active = active != 0
	a.CreatedAt, a.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &a, nil
}
