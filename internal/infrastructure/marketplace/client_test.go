package marketplace_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/infrastructure/marketplace"
	"github.com/jhoicas/stocksync/pkg/ratelimit"
	"github.com/jhoicas/stocksync/pkg/retry"
)

var testAccount = &entity.MarketplaceAccount{ID: "acc-1", Name: "Tienda", AccessToken: "tok-123", Active: true}

func newServer(t *testing.T, h http.HandlerFunc) *marketplace.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return marketplace.NewClient(srv.URL, 2*time.Second)
}

// ── Lecturas ────────────────────────────────────────────────────────────────

func TestGetOffers_SendsTokenAndSkus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/offers", r.URL.Path)
		assert.Equal(t, []string{"A", "B"}, r.URL.Query()["sku"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"offers": []map[string]any{
				{"id": "o1", "sku": "A", "stock": 3},
				{"id": "o2", "sku": "B", "stock": 0},
			},
		})
	})

	offers, err := c.GetOffers(context.Background(), testAccount, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []dto.OfferDTO{{ID: "o1", SKU: "A", Stock: 3}, {ID: "o2", SKU: "B", Stock: 0}}, offers)
}

func TestGetOrders_QueryAndNextOffset(t *testing.T) {
	since := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("offset"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "2026-03-01T10:00:00Z", q.Get("updatedAt.gte"))
		assert.Equal(t, "updatedAt", q.Get("sort"))
		_, _ = w.Write([]byte(`{"items":[{"id":"X1","status":"BOUGHT","updatedAt":"2026-03-02T00:00:00Z"}],"nextOffset":150}`))
	})

	page, err := c.GetOrders(context.Background(), testAccount, dto.OrderQuery{
		Offset: 100, Limit: 50, UpdatedAtGte: since, Sort: "updatedAt",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "X1", page.Items[0].ID)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, 150, *page.NextOffset)
}

func TestGetOrderDetails_ParsesLines(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/ORD-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"ORD-9","status":"READY_FOR_PROCESSING","buyer":{"login":"ana"},
			"updatedAt":"2026-03-02T00:00:00Z",
			"lineItems":[{"offerId":"o1","sku":"A","quantity":2,"price":"19.90"}]}`))
	})

	d, err := c.GetOrderDetails(context.Background(), testAccount, "ORD-9")
	require.NoError(t, err)
	assert.Equal(t, "ana", d.BuyerLogin)
	require.Len(t, d.Lines, 1)
	assert.Equal(t, 2, d.Lines[0].Quantity)
	assert.Equal(t, "19.9", d.Lines[0].UnitPrice.String())
}

func TestGetOrderEventsStatistics(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"latestEvent":{"id":"evt-42"}}`))
	})
	stats, err := c.GetOrderEventsStatistics(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "evt-42", stats.LatestEventID)
}

// ── Escritura ───────────────────────────────────────────────────────────────

func TestUpdateOfferStock_SendsQuantity(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/offers/o1/stock", r.URL.Path)
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 7, body["quantity"])
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.UpdateOfferStock(context.Background(), testAccount, "o1", 7))
}

func TestUpdateOfferStock_RejectsNegative(t *testing.T) {
	c := marketplace.NewClient("http://127.0.0.1:1", time.Second)
	err := c.UpdateOfferStock(context.Background(), testAccount, "o1", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Errores ─────────────────────────────────────────────────────────────────

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"429", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"404", http.StatusNotFound, domain.ErrNotFound},
		{"400", http.StatusBadRequest, domain.ErrInvalidInput},
		{"503", http.StatusServiceUnavailable, domain.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := c.GetOffers(context.Background(), testAccount, []string{"A"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRateLimited_ExposesRetryAfter(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.GetOffers(context.Background(), testAccount, nil)
	var ra retry.RetryAfterer
	require.True(t, errors.As(err, &ra))
	assert.Equal(t, 3*time.Second, ra.RetryAfter())
	assert.True(t, domain.IsRetryable(err))
}

func TestNetworkError_IsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	c := marketplace.NewClient(url, time.Second)
	_, err := c.GetOffers(context.Background(), testAccount, nil)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestMissingToken_IsInvalidInput(t *testing.T) {
	c := marketplace.NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.GetOffers(context.Background(), &entity.MarketplaceAccount{ID: "x"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── LimitedClient ───────────────────────────────────────────────────────────

func TestLimitedClient_TimesOutWhenBucketEmpty(t *testing.T) {
	var hits atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"offers":[]}`))
	})
	// 60/min: un token por segundo, capacidad 60. Con cuenta a 1/min solo pasa una llamada.
	reg := ratelimit.NewRegistry(60, 1, ratelimit.MemoryFactory)
	lc := marketplace.NewLimitedClient(c, reg, 20*time.Millisecond)

	_, err := lc.GetOffers(context.Background(), testAccount, nil)
	require.NoError(t, err)
	_, err = lc.GetOffers(context.Background(), testAccount, nil)
	assert.ErrorIs(t, err, domain.ErrRateLimitTimeout)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLimitedClient_AccountTimeoutKeepsGlobalQuota(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"offers":[]}`))
	})
	// Global 2/min y cuenta 1/min: sin recarga apreciable durante el test.
	reg := ratelimit.NewRegistry(2, 1, ratelimit.MemoryFactory)
	lc := marketplace.NewLimitedClient(c, reg, 10*time.Millisecond)
	other := &entity.MarketplaceAccount{ID: "acc-2", AccessToken: "t2"}
	ctx := context.Background()

	_, err := lc.GetOffers(ctx, testAccount, nil)
	require.NoError(t, err)
	_, err = lc.GetOffers(ctx, testAccount, nil)
	require.ErrorIs(t, err, domain.ErrRateLimitTimeout)

	// El token global sigue disponible para otra cuenta.
	_, err = lc.GetOffers(ctx, other, nil)
	require.NoError(t, err)

	ok, err := reg.Global().Acquire(ctx, 1, 0)
	require.NoError(t, err)
	assert.False(t, ok, "solo dos llamadas consumieron cuota global")
}

func TestLimitedClient_AccountsAreIsolated(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"latestEvent":{"id":"e"}}`))
	})
	reg := ratelimit.NewRegistry(600, 1, ratelimit.MemoryFactory)
	lc := marketplace.NewLimitedClient(c, reg, 10*time.Millisecond)
	other := &entity.MarketplaceAccount{ID: "acc-2", AccessToken: "t2"}

	_, err := lc.GetOrderEventsStatistics(context.Background(), testAccount)
	require.NoError(t, err)
	_, err = lc.GetOrderEventsStatistics(context.Background(), other)
	require.NoError(t, err)
}
