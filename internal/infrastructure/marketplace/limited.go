package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/pkg/ratelimit"
)

var _ ports.MarketplaceClient = (*LimitedClient)(nil)

// LimitedClient decorador que hace pasar cada llamada por el limitador global y el de la cuenta.
type LimitedClient struct {
	next     ports.MarketplaceClient
	limiters *ratelimit.Registry
	wait     time.Duration
}

// NewLimitedClient envuelve next. wait es la espera máxima por tokens antes de abandonar el intento.
func NewLimitedClient(next ports.MarketplaceClient, limiters *ratelimit.Registry, wait time.Duration) *LimitedClient {
	return &LimitedClient{next: next, limiters: limiters, wait: wait}
}

// acquire toma primero el token de la cuenta: si esa espera vence no se gasta cuota global.
func (c *LimitedClient) acquire(ctx context.Context, account *entity.MarketplaceAccount) error {
	if account == nil {
		return domain.ErrInvalidInput
	}
	for _, l := range []struct {
		name string
		lim  ratelimit.Limiter
	}{
		{"cuenta " + account.ID, c.limiters.Account(account.ID)},
		{"global", c.limiters.Global()},
	} {
		ok, err := l.lim.Acquire(ctx, 1, c.wait)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: limitador %s", domain.ErrRateLimitTimeout, l.name)
		}
	}
	return nil
}

func (c *LimitedClient) GetOffers(ctx context.Context, account *entity.MarketplaceAccount, skus []string) ([]dto.OfferDTO, error) {
	if err := c.acquire(ctx, account); err != nil {
		return nil, err
	}
	return c.next.GetOffers(ctx, account, skus)
}

func (c *LimitedClient) UpdateOfferStock(ctx context.Context, account *entity.MarketplaceAccount, offerID string, qty int) error {
	if err := c.acquire(ctx, account); err != nil {
		return err
	}
	return c.next.UpdateOfferStock(ctx, account, offerID, qty)
}

func (c *LimitedClient) GetOrders(ctx context.Context, account *entity.MarketplaceAccount, q dto.OrderQuery) (*dto.OrderPageDTO, error) {
	if err := c.acquire(ctx, account); err != nil {
		return nil, err
	}
	return c.next.GetOrders(ctx, account, q)
}

func (c *LimitedClient) GetOrderDetails(ctx context.Context, account *entity.MarketplaceAccount, orderID string) (*dto.OrderDetailsDTO, error) {
	if err := c.acquire(ctx, account); err != nil {
		return nil, err
	}
	return c.next.GetOrderDetails(ctx, account, orderID)
}

func (c *LimitedClient) GetOrderEventsStatistics(ctx context.Context, account *entity.MarketplaceAccount) (*dto.OrderEventStatsDTO, error) {
	if err := c.acquire(ctx, account); err != nil {
		return nil, err
	}
	return c.next.GetOrderEventsStatistics(ctx, account)
}
