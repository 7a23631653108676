package ports

import (
	"context"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// MarketplaceClient puerto de salida hacia la API del marketplace.
// Errores esperados: domain.ErrRateLimited (429), domain.ErrTransient (red/5xx),
// domain.ErrNotFound (404) y domain.ErrRateLimitTimeout cuando el limitador local no concede a tiempo.
type MarketplaceClient interface {
	GetOffers(ctx context.Context, account *entity.MarketplaceAccount, skus []string) ([]dto.OfferDTO, error)
	UpdateOfferStock(ctx context.Context, account *entity.MarketplaceAccount, offerID string, qty int) error
	GetOrders(ctx context.Context, account *entity.MarketplaceAccount, q dto.OrderQuery) (*dto.OrderPageDTO, error)
	GetOrderDetails(ctx context.Context, account *entity.MarketplaceAccount, orderID string) (*dto.OrderDetailsDTO, error)
	GetOrderEventsStatistics(ctx context.Context, account *entity.MarketplaceAccount) (*dto.OrderEventStatsDTO, error)
}

// Notifier envía alertas a un canal de chat (fallos terminales de sincronización).
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// ReportWriter recibe el informe final de un job de sincronización (paso final del fan-in).
type ReportWriter interface {
	WriteReport(ctx context.Context, report *dto.SyncReportDTO) error
}
