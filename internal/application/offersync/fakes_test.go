package offersync_test

import (
	"context"
	"sync"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// fakeMarketplace guarda el stock publicado por oferta y permite inyectar fallos.
type fakeMarketplace struct {
	mu          sync.Mutex
	offers      []dto.OfferDTO
	updates     []dto.UpdateJob
	offersErrs  []error
	updateErrs  []error
	updateHook  func(offerID string)
	offersCalls int
}

func (f *fakeMarketplace) GetOffers(_ context.Context, _ *entity.MarketplaceAccount, skus []string) ([]dto.OfferDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offersCalls++
	if len(f.offersErrs) > 0 {
		err := f.offersErrs[0]
		f.offersErrs = f.offersErrs[1:]
		return nil, err
	}
	want := make(map[string]bool, len(skus))
	for _, s := range skus {
		want[s] = true
	}
	var out []dto.OfferDTO
	for _, o := range f.offers {
		if o.SKU == "" || want[o.SKU] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeMarketplace) UpdateOfferStock(_ context.Context, acc *entity.MarketplaceAccount, offerID string, qty int) error {
	if f.updateHook != nil {
		f.updateHook(offerID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		return err
	}
	for i := range f.offers {
		if f.offers[i].ID == offerID {
			f.offers[i].Stock = qty
		}
	}
	f.updates = append(f.updates, dto.UpdateJob{AccountID: acc.ID, OfferID: offerID, TargetQty: qty})
	return nil
}

func (f *fakeMarketplace) GetOrders(context.Context, *entity.MarketplaceAccount, dto.OrderQuery) (*dto.OrderPageDTO, error) {
	return &dto.OrderPageDTO{}, nil
}

func (f *fakeMarketplace) GetOrderDetails(context.Context, *entity.MarketplaceAccount, string) (*dto.OrderDetailsDTO, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeMarketplace) GetOrderEventsStatistics(context.Context, *entity.MarketplaceAccount) (*dto.OrderEventStatsDTO, error) {
	return &dto.OrderEventStatsDTO{}, nil
}

func (f *fakeMarketplace) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type fakeStock map[string]int

func (s fakeStock) TotalStock(_ context.Context, sku string) (int, error) { return s[sku], nil }

type fakeProducts map[string]bool

func (p fakeProducts) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	if !p[sku] {
		return nil, nil
	}
	return &entity.Product{SKU: sku, Name: sku}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendMessage(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type recordingReports struct {
	mu      sync.Mutex
	reports []*dto.SyncReportDTO
}

func (r *recordingReports) WriteReport(_ context.Context, rep *dto.SyncReportDTO) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

var account = &entity.MarketplaceAccount{ID: "acc", Name: "Tienda", AccessToken: "t", Active: true}
