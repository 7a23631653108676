package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale registro inmutable de una deducción de stock (append-only).
// OrderID vacío = deducción manual; UnitPrice puede ser cero si no se conoce.
type Sale struct {
	ID        string
	SKU       string
	Warehouse string
	Quantity  int
	UnitPrice decimal.Decimal
	OrderID   string
	SoldAt    time.Time
}
