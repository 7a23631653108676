package entity

import "time"

// MarketplaceAccount cuenta de vendedor en el marketplace. El ID es la clave de aislamiento
// (watermarks, cuotas de rate limit, pedidos).
type MarketplaceAccount struct {
	ID          string
	Name        string
	AccessToken string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
