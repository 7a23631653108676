package repository

import (
	"context"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	// ListSKUs devuelve los SKUs ordenados alfabéticamente (paginado).
	ListSKUs(ctx context.Context, limit, offset int) ([]string, error)
}
