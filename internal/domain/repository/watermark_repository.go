package repository

import (
	"context"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// WatermarkRepository puerto del progreso de sincronización por cuenta.
type WatermarkRepository interface {
	// Get devuelve nil, nil si la cuenta nunca sincronizó.
	Get(ctx context.Context, accountID string) (*entity.Watermark, error)
	// Advance guarda el watermark sin retroceder LastSyncTime (se conserva el mayor).
	Advance(ctx context.Context, wm *entity.Watermark) error
	Reset(ctx context.Context, accountID string) error
}
