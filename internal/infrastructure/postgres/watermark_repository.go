package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.WatermarkRepository = (*WatermarkRepo)(nil)

// WatermarkRepo progreso de sincronización de pedidos por cuenta.
type WatermarkRepo struct {
	q Querier
}

// NewWatermarkRepository construye el adaptador de watermarks.
func NewWatermarkRepository(q Querier) *WatermarkRepo {
	return &WatermarkRepo{q: q}
}

func (r *WatermarkRepo) Get(ctx context.Context, accountID string) (*entity.Watermark, error) {
	var wm entity.Watermark
	err := r.q.QueryRow(ctx, `
		SELECT account_id, last_sync_time, last_event_id, updated_at
		FROM sync_watermarks WHERE account_id = $1`, accountID).
		Scan(&wm.AccountID, &wm.LastSyncTime, &wm.LastEventID, &wm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get watermark: %w", err)
	}
	return &wm, nil
}

// Advance guarda el watermark conservando el mayor last_sync_time. Un last_event_id vacío
// no borra el anterior.
func (r *WatermarkRepo) Advance(ctx context.Context, wm *entity.Watermark) error {
	query := `
		INSERT INTO sync_watermarks (account_id, last_sync_time, last_event_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			last_sync_time = GREATEST(sync_watermarks.last_sync_time, EXCLUDED.last_sync_time),
			last_event_id = CASE WHEN EXCLUDED.last_event_id = '' THEN sync_watermarks.last_event_id
				ELSE EXCLUDED.last_event_id END,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, wm.AccountID, wm.LastSyncTime, wm.LastEventID, wm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

// Reset borra el watermark; la próxima pasada vuelve a la ventana inicial.
func (r *WatermarkRepo) Reset(ctx context.Context, accountID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sync_watermarks WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("reset watermark: %w", err)
	}
	return nil
}
