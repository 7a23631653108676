package entity

import "time"

// Stock representa la cantidad de un SKU en una bodega. Una fila por (SKU, bodega); nunca negativa.
type Stock struct {
	SKU       string
	Warehouse string
	Quantity  int
	UpdatedAt time.Time
}
