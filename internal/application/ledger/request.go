package ledger

import (
	"context"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/domain"
)

// ApplyMovementFromRequest adapta el request HTTP a la operación del libro correspondiente
// (RESTOCK, TRANSFER o DEDUCT).
func (l *StockLedger) ApplyMovementFromRequest(ctx context.Context, in dto.StockMovementRequest) error {
	switch in.Type {
	case dto.MovementRestock:
		return l.Restock(ctx, in.SKU, in.Warehouse, in.Quantity)
	case dto.MovementTransfer:
		return l.Transfer(ctx, in.SKU, in.Quantity, in.FromWarehouse, in.ToWarehouse)
	case dto.MovementDeduct:
		_, err := l.Deduct(ctx, in.SKU, in.Warehouse, in.Quantity)
		return err
	}
	return domain.ErrInvalidInput
}

// ImportProductFromRequest adapta el request HTTP de importación de producto.
func (l *StockLedger) ImportProductFromRequest(ctx context.Context, in dto.ImportProductRequest) (bool, error) {
	_, created, err := l.ImportProduct(ctx, ProductImport{
		SKU:       in.SKU,
		Name:      in.Name,
		EANs:      in.EANs,
		Warehouse: in.Warehouse,
		Quantity:  in.Quantity,
	})
	return created, err
}
