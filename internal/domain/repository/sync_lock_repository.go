package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// SyncLockRepository puerto de los locks por SKU. TryAcquire y Release deben ser atómicos
// en el almacenamiento compartido (una sola sentencia condicional).
type SyncLockRepository interface {
	// TryAcquire crea o toma el lock si no existe, si está en estado terminal o si expiró.
	TryAcquire(ctx context.Context, sku, owner string, ttl time.Duration, now time.Time) (bool, error)
	// Release actualiza estado y error solo si owner sigue siendo el dueño.
	Release(ctx context.Context, sku, owner string, status entity.SyncLockStatus, lastError string, now time.Time) (bool, error)
	Get(ctx context.Context, sku string) (*entity.SyncLock, error)
}
