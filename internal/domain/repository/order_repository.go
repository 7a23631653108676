package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// OrderRepository puerto de pedidos reflejados del marketplace. Un pedido se identifica por
// (cuenta, external id): dos cuentas pueden repetir el mismo id externo.
type OrderRepository interface {
	// GetByExternalID devuelve domain.ErrNotFound si el pedido no existe.
	GetByExternalID(ctx context.Context, accountID, externalID string) (*entity.Order, error)
	// GetForUpdate bloquea la fila del pedido hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, accountID, externalID string) (*entity.Order, error)
	// Insert devuelve domain.ErrDuplicate si el pedido ya existe para la cuenta.
	Insert(ctx context.Context, order *entity.Order) error
	// Update sobrescribe los campos del pedido solo si order.UpdatedAt no es anterior al guardado.
	// Nunca modifica stock_deducted. Devuelve false si la fila guardada era más reciente.
	Update(ctx context.Context, order *entity.Order) (bool, error)
	MarkDeducted(ctx context.Context, accountID, externalID string, at time.Time) error
}
