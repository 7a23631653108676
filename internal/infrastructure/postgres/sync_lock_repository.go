package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.SyncLockRepository = (*SyncLockRepo)(nil)

// SyncLockRepo locks de sincronización por SKU sobre PostgreSQL.
type SyncLockRepo struct {
	q Querier
}

// NewSyncLockRepository construye el adaptador de locks.
func NewSyncLockRepository(q Querier) *SyncLockRepo {
	return &SyncLockRepo{q: q}
}

// TryAcquire toma el lock en una sola sentencia: inserta la fila o la sobrescribe si el lock
// anterior terminó o expiró. Sin fila devuelta el lock sigue en manos de otro dueño.
func (r *SyncLockRepo) TryAcquire(ctx context.Context, sku, owner string, ttl time.Duration, now time.Time) (bool, error) {
	query := `
		INSERT INTO sync_locks (sku, owner, status, acquired_at, last_error, updated_at)
		VALUES ($1, $2, 'in_progress', $3, '', $3)
		ON CONFLICT (sku) DO UPDATE SET
			owner = EXCLUDED.owner,
			status = 'in_progress',
			acquired_at = EXCLUDED.acquired_at,
			last_error = '',
			updated_at = EXCLUDED.updated_at
		WHERE sync_locks.status <> 'in_progress' OR sync_locks.acquired_at <= $4
		RETURNING owner`
	var got string
	err := r.q.QueryRow(ctx, query, sku, owner, now, now.Add(-ttl)).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return got == owner, nil
}

// Release deja el estado terminal solo si owner sigue siendo el dueño.
func (r *SyncLockRepo) Release(ctx context.Context, sku, owner string, status entity.SyncLockStatus, lastError string, now time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE sync_locks SET status = $3, last_error = $4, updated_at = $5
		WHERE sku = $1 AND owner = $2`, sku, owner, string(status), lastError, now)
	if err != nil {
		return false, fmt.Errorf("release sync lock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get devuelve el último estado del lock (nil si el SKU nunca se sincronizó).
func (r *SyncLockRepo) Get(ctx context.Context, sku string) (*entity.SyncLock, error) {
	var (
		l      entity.SyncLock
		status string
	)
	err := r.q.QueryRow(ctx, `
		SELECT sku, owner, status, acquired_at, last_error, updated_at
		FROM sync_locks WHERE sku = $1`, sku).Scan(&l.SKU, &l.Owner, &status, &l.AcquiredAt, &l.LastError, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync lock: %w", err)
	}
	l.Status = entity.SyncLockStatus(status)
	return &l, nil
}
