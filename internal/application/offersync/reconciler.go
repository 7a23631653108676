// Package offersync reconciliación de stock publicado contra el libro local y ejecución por lotes
// de las actualizaciones de ofertas.
package offersync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/pkg/retry"
)

// StockTotaler total de stock de un SKU en todas las bodegas (ledger.StockLedger).
type StockTotaler interface {
	TotalStock(ctx context.Context, sku string) (int, error)
}

// ProductFinder búsqueda de productos locales (nil si no existe).
type ProductFinder interface {
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
}

// OfferReconciler compara el stock publicado de cada oferta con el total del libro.
type OfferReconciler struct {
	client   ports.MarketplaceClient
	stock    StockTotaler
	products ProductFinder
	retry    retry.Policy
	log      zerolog.Logger
}

// NewOfferReconciler crea el reconciliador. policy se usa para la lectura de ofertas.
func NewOfferReconciler(client ports.MarketplaceClient, stock StockTotaler, products ProductFinder, policy retry.Policy, log zerolog.Logger) *OfferReconciler {
	return &OfferReconciler{client: client, stock: stock, products: products, retry: policy, log: log}
}

// Reconcile devuelve un UpdateJob por cada oferta cuyo stock publicado difiere del total local
// y cuántas ofertas ya estaban al día. Ofertas sin SKU o sin producto local se omiten
// (se registran, no son fatales).
func (r *OfferReconciler) Reconcile(ctx context.Context, account *entity.MarketplaceAccount, skus []string) ([]dto.UpdateJob, int, error) {
	if len(skus) == 0 {
		return nil, 0, nil
	}
	var offers []dto.OfferDTO
	err := r.retry.Do(ctx, func(int) error {
		var err error
		offers, err = r.client.GetOffers(ctx, account, skus)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("obtener ofertas: %w", err)
	}

	log := r.log.With().Str("account_id", account.ID).Logger()
	byID := make(map[string]dto.OfferDTO, len(offers))
	order := make([]string, 0, len(offers))
	for _, o := range offers {
		if _, dup := byID[o.ID]; dup {
			continue
		}
		byID[o.ID] = o
		order = append(order, o.ID)
	}

	targets := make(map[string]int)
	var (
		jobs   []dto.UpdateJob
		inSync int
	)
	for _, id := range order {
		offer := byID[id]
		if offer.SKU == "" {
			log.Warn().Str("offer_id", offer.ID).Msg("oferta sin SKU, se omite")
			continue
		}
		target, ok := targets[offer.SKU]
		if !ok {
			p, err := r.products.GetBySKU(ctx, offer.SKU)
			if err != nil {
				return nil, 0, err
			}
			if p == nil {
				log.Warn().Str("offer_id", offer.ID).Str("sku", offer.SKU).Msg("oferta con SKU desconocido, se omite")
				targets[offer.SKU] = -1
				continue
			}
			target, err = r.stock.TotalStock(ctx, offer.SKU)
			if err != nil {
				return nil, 0, err
			}
			targets[offer.SKU] = target
		}
		if target < 0 {
			continue
		}
		if target == offer.Stock {
			inSync++
			continue
		}
		jobs = append(jobs, dto.UpdateJob{
			AccountID:    account.ID,
			OfferID:      offer.ID,
			SKU:          offer.SKU,
			TargetQty:    target,
			PublishedQty: offer.Stock,
		})
	}
	return jobs, inSync, nil
}
