package dto

import "time"

// Tipos de movimiento aceptados por POST /api/stock/movements.
const (
	MovementRestock  = "RESTOCK"
	MovementTransfer = "TRANSFER"
	MovementDeduct   = "DEDUCT"
)

// StockMovementRequest body para POST /api/stock/movements.
// RESTOCK/DEDUCT usan warehouse; TRANSFER usa from_warehouse y to_warehouse.
type StockMovementRequest struct {
	Type          string `json:"type"`
	SKU           string `json:"sku"`
	Warehouse     string `json:"warehouse,omitempty"`
	FromWarehouse string `json:"from_warehouse,omitempty"`
	ToWarehouse   string `json:"to_warehouse,omitempty"`
	Quantity      int    `json:"quantity"`
}

// ImportProductRequest body para PUT /api/products.
type ImportProductRequest struct {
	SKU       string   `json:"sku"`
	Name      string   `json:"name"`
	EANs      []string `json:"eans,omitempty"`
	Warehouse string   `json:"warehouse,omitempty"`
	Quantity  int      `json:"quantity,omitempty"`
}

// StockRowDTO stock de un SKU en una bodega.
type StockRowDTO struct {
	Warehouse string    `json:"warehouse"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockResponse detalle y total de un SKU.
type StockResponse struct {
	SKU        string        `json:"sku"`
	Total      int           `json:"total"`
	Warehouses []StockRowDTO `json:"warehouses"`
}

// SaleDTO registro del log de ventas.
type SaleDTO struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Warehouse string    `json:"warehouse"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	OrderID   string    `json:"order_id,omitempty"`
	SoldAt    time.Time `json:"sold_at"`
}
