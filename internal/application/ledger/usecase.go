package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

const (
	defaultSalesLimit = 50
	maxSalesLimit     = 500
)

// StockLedger es el dueño exclusivo de Stock y Sale. Cada operación que muta se ejecuta en una
// única transacción (TxRunner) con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
type StockLedger struct {
	txRunner    TxRunner
	stockRepo   repository.StockRepository
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
	now         func() time.Time
}

// NewStockLedger construye el libro de stock. Los repos sueltos se usan solo para lecturas.
func NewStockLedger(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
) *StockLedger {
	return &StockLedger{
		txRunner:    txRunner,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		saleRepo:    saleRepo,
		now:         time.Now,
	}
}

// DeductInput datos de una deducción dentro de una transacción ya abierta.
type DeductInput struct {
	SKU       string
	Warehouse string
	Quantity  int
	UnitPrice decimal.Decimal
	OrderID   string
}

// Restock suma qty al stock del SKU en la bodega; crea la fila si no existe.
func (l *StockLedger) Restock(ctx context.Context, sku, warehouse string, qty int) error {
	sku, warehouse = strings.TrimSpace(sku), strings.TrimSpace(warehouse)
	if sku == "" || warehouse == "" || qty <= 0 {
		return domain.ErrInvalidInput
	}
	now := l.now()
	return l.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		_ repository.SaleRepository,
		productRepo repository.ProductRepository,
	) error {
		if err := requireProduct(ctx, productRepo, sku); err != nil {
			return err
		}
		return restockInTx(ctx, stockRepo, sku, warehouse, qty, now)
	})
}

// Transfer mueve qty de from a to en una sola transacción: o cambian ambas bodegas o ninguna.
func (l *StockLedger) Transfer(ctx context.Context, sku string, qty int, from, to string) error {
	sku, from, to = strings.TrimSpace(sku), strings.TrimSpace(from), strings.TrimSpace(to)
	if sku == "" || from == "" || to == "" || from == to || qty <= 0 {
		return domain.ErrInvalidInput
	}
	now := l.now()
	return l.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		_ repository.SaleRepository,
		productRepo repository.ProductRepository,
	) error {
		if err := requireProduct(ctx, productRepo, sku); err != nil {
			return err
		}
		// Bloquea las dos filas siempre en el mismo orden para evitar deadlocks entre traslados cruzados.
		first, second := from, to
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*entity.Stock, 2)
		for _, wh := range []string{first, second} {
			s, err := stockRepo.GetForUpdate(ctx, sku, wh)
			if err != nil {
				return err
			}
			locked[wh] = s
		}
		origin, dest := locked[from], locked[to]
		if origin.Quantity < qty {
			return domain.ErrInsufficientStock
		}
		origin.Quantity -= qty
		dest.Quantity += qty
		origin.UpdatedAt = now
		dest.UpdatedAt = now
		if err := stockRepo.Upsert(ctx, origin); err != nil {
			return err
		}
		return stockRepo.Upsert(ctx, dest)
	})
}

// Deduct resta qty del stock y agrega el registro de venta en la misma transacción.
func (l *StockLedger) Deduct(ctx context.Context, sku, warehouse string, qty int) (*entity.Sale, error) {
	var sale *entity.Sale
	err := l.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		saleRepo repository.SaleRepository,
		productRepo repository.ProductRepository,
	) error {
		if err := requireProduct(ctx, productRepo, strings.TrimSpace(sku)); err != nil {
			return err
		}
		var err error
		sale, err = l.DeductInTx(ctx, stockRepo, saleRepo, DeductInput{
			SKU: sku, Warehouse: warehouse, Quantity: qty,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// DeductInTx ejecuta una deducción usando los repositorios proporcionados (misma transacción del caller).
// Lo usa el flujo de pedidos para que la deducción y el cambio de bandera compartan transacción.
func (l *StockLedger) DeductInTx(
	ctx context.Context,
	stockRepo repository.StockRepository,
	saleRepo repository.SaleRepository,
	in DeductInput,
) (*entity.Sale, error) {
	sku, warehouse := strings.TrimSpace(in.SKU), strings.TrimSpace(in.Warehouse)
	if sku == "" || warehouse == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	now := l.now()
	stock, err := stockRepo.GetForUpdate(ctx, sku, warehouse)
	if err != nil {
		return nil, err
	}
	if stock.Quantity < in.Quantity {
		return nil, domain.ErrInsufficientStock
	}
	stock.Quantity -= in.Quantity
	stock.UpdatedAt = now
	if err := stockRepo.Upsert(ctx, stock); err != nil {
		return nil, err
	}
	sale := &entity.Sale{
		ID:        uuid.New().String(),
		SKU:       sku,
		Warehouse: warehouse,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		OrderID:   in.OrderID,
		SoldAt:    now,
	}
	if err := saleRepo.Create(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// TotalStock suma la cantidad del SKU en todas las bodegas (objetivo de la reconciliación).
func (l *StockLedger) TotalStock(ctx context.Context, sku string) (int, error) {
	return l.stockRepo.TotalBySKU(ctx, sku)
}

// StockBySKU devuelve el detalle por bodega.
func (l *StockLedger) StockBySKU(ctx context.Context, sku string) ([]*entity.Stock, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, domain.ErrInvalidInput
	}
	return l.stockRepo.ListBySKU(ctx, sku)
}

// ListSales consulta el log de ventas tal cual (sin agregaciones).
func (l *StockLedger) ListSales(ctx context.Context, filter repository.SaleFilter) ([]*entity.Sale, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultSalesLimit
	}
	if filter.Limit > maxSalesLimit {
		filter.Limit = maxSalesLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return l.saleRepo.List(ctx, filter)
}

func restockInTx(ctx context.Context, stockRepo repository.StockRepository, sku, warehouse string, qty int, now time.Time) error {
	stock, err := stockRepo.GetForUpdate(ctx, sku, warehouse)
	if err != nil {
		return err
	}
	stock.Quantity += qty
	stock.UpdatedAt = now
	return stockRepo.Upsert(ctx, stock)
}

func requireProduct(ctx context.Context, productRepo repository.ProductRepository, sku string) error {
	if sku == "" {
		return domain.ErrInvalidInput
	}
	p, err := productRepo.GetBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrNotFound
	}
	return nil
}
