package repository

import (
	"context"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// AccountRepository puerto de cuentas de marketplace.
type AccountRepository interface {
	ListActive(ctx context.Context) ([]*entity.MarketplaceAccount, error)
	// GetByID devuelve domain.ErrNotFound si la cuenta no existe.
	GetByID(ctx context.Context, id string) (*entity.MarketplaceAccount, error)
	// Upsert registra o actualiza una cuenta (alta desde configuración).
	Upsert(ctx context.Context, account *entity.MarketplaceAccount) error
}
