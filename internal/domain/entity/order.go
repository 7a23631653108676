package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pedido del marketplace.
const (
	OrderStatusBought             = "BOUGHT"
	OrderStatusFilledIn           = "FILLED_IN"
	OrderStatusReadyForProcessing = "READY_FOR_PROCESSING"
	OrderStatusCancelled          = "CANCELLED"
)

// Order pedido externo reflejado localmente.
// StockDeducted pasa de false a true exactamente una vez, en la misma transacción que la deducción.
type Order struct {
	ExternalID    string
	AccountID     string
	Status        string
	BuyerLogin    string
	Lines         []OrderLine
	UpdatedAt     time.Time // fecha de actualización reportada por el marketplace
	StockDeducted bool
	DeductedAt    *time.Time
	CreatedAt     time.Time
	SyncedAt      time.Time
}

// OrderLine línea de un pedido (oferta vendida).
type OrderLine struct {
	OfferID   string          `json:"offer_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Deductible indica si el estado del pedido implica salida física de stock.
func (o *Order) Deductible() bool {
	return o.Status == OrderStatusReadyForProcessing
}
