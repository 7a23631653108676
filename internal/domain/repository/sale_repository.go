package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// SaleFilter filtros para consultar el log de ventas.
type SaleFilter struct {
	SKU    string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// SaleRepository puerto del log de ventas (append-only: no hay Update ni Delete).
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	List(ctx context.Context, filter SaleFilter) ([]*entity.Sale, error)
}
