package entity

import "time"

// Product representa un artículo vendible identificado por SKU.
// El SKU es inmutable una vez creado; nombre, EANs e imagen se actualizan por importación.
type Product struct {
	SKU       string
	Name      string
	EANs      []string
	Image     []byte // opcional
	CreatedAt time.Time
	UpdatedAt time.Time
}

