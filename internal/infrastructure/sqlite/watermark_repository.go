package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.WatermarkRepository = (*WatermarkRepo)(nil)

// WatermarkRepo progreso de sincronización por cuenta sobre SQLite.
type WatermarkRepo struct {
	q Querier
}

// NewWatermarkRepository construye el adaptador.
func NewWatermarkRepository(q Querier) *WatermarkRepo {
	return &WatermarkRepo{q: q}
}

func (r *WatermarkRepo) Get(ctx context.Context, accountID string) (*entity.Watermark, error) {
	var (
		wm            entity.Watermark
		last, updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT account_id, last_sync_time, last_event_id, updated_at
		FROM sync_watermarks WHERE account_id = ?`, accountID).
		Scan(&wm.AccountID, &last, &wm.LastEventID, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get watermark: %w", err)
	}
	wm.LastSyncTime, wm.UpdatedAt = fromNanos(last), fromNanos(updated)
	return &wm, nil
}

// Advance conserva el mayor last_sync_time (MAX escalar de SQLite).
func (r *WatermarkRepo) Advance(ctx context.Context, wm *entity.Watermark) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sync_watermarks (account_id, last_sync_time, last_event_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			last_sync_time = MAX(sync_watermarks.last_sync_time, excluded.last_sync_time),
			last_event_id = CASE WHEN excluded.last_event_id = '' THEN sync_watermarks.last_event_id
				ELSE excluded.last_event_id END,
			updated_at = excluded.updated_at`,
		wm.AccountID, toNanos(wm.LastSyncTime), wm.LastEventID, toNanos(wm.UpdatedAt))
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

func (r *WatermarkRepo) Reset(ctx context.Context, accountID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM sync_watermarks WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("reset watermark: %w", err)
	}
	return nil
}
