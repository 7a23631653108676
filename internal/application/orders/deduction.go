package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/stocksync/internal/application/ledger"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

// DeductionMode estrategia de deducción de stock para pedidos.
type DeductionMode string

const (
	// DeductionProcessAndDeduct descuenta cada línea y marca el pedido en la misma transacción.
	DeductionProcessAndDeduct DeductionMode = "process_and_deduct"
	// DeductionMarkOnly solo marca el pedido (cargas históricas ya reflejadas en el stock).
	DeductionMarkOnly DeductionMode = "mark_only"
)

// ParseDeductionMode valida el modo configurado.
func ParseDeductionMode(s string) (DeductionMode, error) {
	switch DeductionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DeductionProcessAndDeduct:
		return DeductionProcessAndDeduct, nil
	case DeductionMarkOnly:
		return DeductionMarkOnly, nil
	}
	return "", fmt.Errorf("%w: modo de deducción %q", domain.ErrInvalidInput, s)
}

// DeductionOutcome resultado de aplicar la estrategia a un pedido.
type DeductionOutcome int

const (
	DeductionSkipped DeductionOutcome = iota // estado no deducible
	DeductionAlreadyDone
	DeductionApplied
)

// DeductionStrategy aplica la deducción a un pedido ya persistido. La bandera stock_deducted se
// revisa bajo bloqueo de fila, así que reprocesar un pedido nunca descuenta dos veces.
type DeductionStrategy interface {
	Mode() DeductionMode
	Apply(ctx context.Context, accountID, externalID string) (DeductionOutcome, error)
}

// NewDeductionStrategy construye la estrategia del modo indicado.
func NewDeductionStrategy(mode DeductionMode, txRunner TxRunner, deducter StockDeducter, warehouse string) (DeductionStrategy, error) {
	base := deductionBase{txRunner: txRunner, now: time.Now}
	switch mode {
	case DeductionProcessAndDeduct:
		if deducter == nil || strings.TrimSpace(warehouse) == "" {
			return nil, domain.ErrInvalidInput
		}
		return &processAndDeduct{deductionBase: base, deducter: deducter, warehouse: warehouse}, nil
	case DeductionMarkOnly:
		return &markOnly{deductionBase: base}, nil
	}
	return nil, fmt.Errorf("%w: modo de deducción %q", domain.ErrInvalidInput, mode)
}

var (
	errAlreadyDeducted = errors.New("pedido ya deducido")
	errNotDeductible   = errors.New("pedido en estado no deducible")
)

type deductionBase struct {
	txRunner TxRunner
	now      func() time.Time
}

// run bloquea el pedido, descarta los ya deducidos o no deducibles, ejecuta body y marca la bandera.
func (b deductionBase) run(ctx context.Context, accountID, externalID string, body func(
	order *entity.Order,
	stockRepo repository.StockRepository,
	saleRepo repository.SaleRepository,
) error) (DeductionOutcome, error) {
	err := b.txRunner.RunOrders(ctx, func(
		stockRepo repository.StockRepository,
		saleRepo repository.SaleRepository,
		orderRepo repository.OrderRepository,
	) error {
		order, err := orderRepo.GetForUpdate(ctx, accountID, externalID)
		if err != nil {
			return err
		}
		if order.StockDeducted {
			return errAlreadyDeducted
		}
		if !order.Deductible() {
			return errNotDeductible
		}
		if err := body(order, stockRepo, saleRepo); err != nil {
			return err
		}
		return orderRepo.MarkDeducted(ctx, accountID, externalID, b.now().UTC())
	})
	switch {
	case err == nil:
		return DeductionApplied, nil
	case errors.Is(err, errAlreadyDeducted), errors.Is(err, domain.ErrConflict):
		return DeductionAlreadyDone, nil
	case errors.Is(err, errNotDeductible):
		return DeductionSkipped, nil
	}
	return DeductionSkipped, err
}

type processAndDeduct struct {
	deductionBase
	deducter  StockDeducter
	warehouse string
}

func (p *processAndDeduct) Mode() DeductionMode { return DeductionProcessAndDeduct }

func (p *processAndDeduct) Apply(ctx context.Context, accountID, externalID string) (DeductionOutcome, error) {
	return p.run(ctx, accountID, externalID, func(order *entity.Order, stockRepo repository.StockRepository, saleRepo repository.SaleRepository) error {
		if len(order.Lines) == 0 {
			return fmt.Errorf("%w: pedido %s sin líneas", domain.ErrInvalidInput, order.ExternalID)
		}
		for _, line := range order.Lines {
			if strings.TrimSpace(line.SKU) == "" {
				return fmt.Errorf("%w: línea sin SKU (oferta %s)", domain.ErrNotFound, line.OfferID)
			}
			_, err := p.deducter.DeductInTx(ctx, stockRepo, saleRepo, ledger.DeductInput{
				SKU:       line.SKU,
				Warehouse: p.warehouse,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				OrderID:   order.ExternalID,
			})
			if err != nil {
				return fmt.Errorf("deducir %s: %w", line.SKU, err)
			}
		}
		return nil
	})
}

type markOnly struct {
	deductionBase
}

func (m *markOnly) Mode() DeductionMode { return DeductionMarkOnly }

func (m *markOnly) Apply(ctx context.Context, accountID, externalID string) (DeductionOutcome, error) {
	return m.run(ctx, accountID, externalID, func(*entity.Order, repository.StockRepository, repository.SaleRepository) error {
		return nil
	})
}
