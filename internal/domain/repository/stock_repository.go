package repository

import (
	"context"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por SKU+bodega.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve la fila o una fila con cantidad 0 si no existe.
	Get(ctx context.Context, sku, warehouse string) (*entity.Stock, error)
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, sku, warehouse string) (*entity.Stock, error)
	Upsert(ctx context.Context, stock *entity.Stock) error
	ListBySKU(ctx context.Context, sku string) ([]*entity.Stock, error)
	TotalBySKU(ctx context.Context, sku string) (int, error)
}
