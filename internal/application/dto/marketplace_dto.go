package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferDTO oferta publicada en el marketplace. SKU vacío = oferta sin vínculo local.
type OfferDTO struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// OrderQuery parámetros de paginación de pedidos (orden estable por updatedAt).
type OrderQuery struct {
	Offset       int
	Limit        int
	UpdatedAtGte time.Time
	Sort         string
}

// OrderSummaryDTO elemento de una página de pedidos.
type OrderSummaryDTO struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderPageDTO página de pedidos. NextOffset es opcional; solo una página corta indica el final.
type OrderPageDTO struct {
	Items      []OrderSummaryDTO `json:"items"`
	NextOffset *int              `json:"next_offset,omitempty"`
}

// OrderLineDTO línea del detalle de un pedido.
type OrderLineDTO struct {
	OfferID   string          `json:"offer_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderDetailsDTO detalle completo de un pedido.
type OrderDetailsDTO struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	BuyerLogin string         `json:"buyer_login"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Lines      []OrderLineDTO `json:"lines"`
}

// OrderEventStatsDTO estadísticas del stream de eventos de pedidos.
type OrderEventStatsDTO struct {
	LatestEventID string `json:"latest_event_id"`
}
