package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.SyncLockRepository = (*SyncLockRepo)(nil)

// SyncLockRepo locks por SKU sobre SQLite (misma sentencia condicional que en PostgreSQL).
type SyncLockRepo struct {
	q Querier
}

// NewSyncLockRepository construye el adaptador.
func NewSyncLockRepository(q Querier) *SyncLockRepo {
	return &SyncLockRepo{q: q}
}

func (r *SyncLockRepo) TryAcquire(ctx context.Context, sku, owner string, ttl time.Duration, now time.Time) (bool, error) {
	var got string
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO sync_locks (sku, owner, status, acquired_at, last_error, updated_at)
		VALUES (?, ?, 'in_progress', ?, '', ?)
		ON CONFLICT(sku) DO UPDATE SET
			owner = excluded.owner,
			status = 'in_progress',
			acquired_at = excluded.acquired_at,
			last_error = '',
			updated_at = excluded.updated_at
		WHERE sync_locks.status <> 'in_progress' OR sync_locks.acquired_at <= ?
		RETURNING owner`,
		sku, owner, toNanos(now), toNanos(now), toNanos(now.Add(-ttl))).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return got == owner, nil
}

func (r *SyncLockRepo) Release(ctx context.Context, sku, owner string, status entity.SyncLockStatus, lastError string, now time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sync_locks SET status = ?, last_error = ?, updated_at = ?
		WHERE sku = ? AND owner = ?`, string(status), lastError, toNanos(now), sku, owner)
	if err != nil {
		return false, fmt.Errorf("release sync lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release sync lock: %w", err)
	}
	return n > 0, nil
}

func (r *SyncLockRepo) Get(ctx context.Context, sku string) (*entity.SyncLock, error) {
	var (
		l                 entity.SyncLock
		status            string
		acquired, updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT sku, owner, status, acquired_at, last_error, updated_at
		FROM sync_locks WHERE sku = ?`, sku).
		Scan(&l.SKU, &l.Owner, &status, &acquired, &l.LastError, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync lock: %w", err)
	}
	l.Status = entity.SyncLockStatus(status)
	l.AcquiredAt, l.UpdatedAt = fromNanos(acquired), fromNanos(updated)
	return &l, nil
}
