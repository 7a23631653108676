package orders

import (
	"context"

	"github.com/jhoicas/stocksync/internal/application/ledger"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

// TxRunner transacción con los repositorios que necesita la deducción de un pedido:
// el cambio de bandera y el movimiento de stock se confirman juntos o ninguno.
type TxRunner interface {
	RunOrders(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		saleRepo repository.SaleRepository,
		orderRepo repository.OrderRepository,
	) error) error
}

// StockDeducter primitiva de deducción dentro de una transacción abierta (ledger.StockLedger).
type StockDeducter interface {
	DeductInTx(
		ctx context.Context,
		stockRepo repository.StockRepository,
		saleRepo repository.SaleRepository,
		in ledger.DeductInput,
	) (*entity.Sale, error)
}
