package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/pkg/retry"
)

// Verificar en tiempo de compilación que Client implementa MarketplaceClient.
var _ ports.MarketplaceClient = (*Client)(nil)

const maxBodyBytes = 4 << 20

// Client adaptador HTTP de la API del marketplace. Autenticación por bearer token de cada cuenta.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient construye el adaptador. timeout <= 0 usa 30 s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ── Estructuras del protocolo ────────────────────────────────────────────────

type wireOffer struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

type offersResponse struct {
	Offers []wireOffer `json:"offers"`
}

type stockUpdateRequest struct {
	Quantity int `json:"quantity"`
}

type wireOrderSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ordersResponse struct {
	Items      []wireOrderSummary `json:"items"`
	NextOffset *int               `json:"nextOffset"`
}

type wireOrderLine struct {
	OfferID  string `json:"offerId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type wireBuyer struct {
	Login string `json:"login"`
}

type wireOrder struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Buyer     wireBuyer       `json:"buyer"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Lines     []wireOrderLine `json:"lineItems"`
}

type eventStatsResponse struct {
	LatestEvent struct {
		ID string `json:"id"`
	} `json:"latestEvent"`
}

// ── Implementación del puerto ────────────────────────────────────────────────

// GetOffers lista las ofertas publicadas de la cuenta para los SKUs dados.
func (c *Client) GetOffers(ctx context.Context, account *entity.MarketplaceAccount, skus []string) ([]dto.OfferDTO, error) {
	q := url.Values{}
	for _, s := range skus {
		q.Add("sku", s)
	}
	var resp offersResponse
	if err := c.do(ctx, account, http.MethodGet, "/v1/offers?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]dto.OfferDTO, 0, len(resp.Offers))
	for _, o := range resp.Offers {
		out = append(out, dto.OfferDTO{ID: o.ID, SKU: o.SKU, Stock: o.Stock})
	}
	return out, nil
}

// UpdateOfferStock fija el stock publicado de una oferta.
func (c *Client) UpdateOfferStock(ctx context.Context, account *entity.MarketplaceAccount, offerID string, qty int) error {
	if offerID == "" || qty < 0 {
		return domain.ErrInvalidInput
	}
	path := "/v1/offers/" + url.PathEscape(offerID) + "/stock"
	return c.do(ctx, account, http.MethodPut, path, stockUpdateRequest{Quantity: qty}, nil)
}

// GetOrders página de pedidos con updatedAt >= q.UpdatedAtGte.
func (c *Client) GetOrders(ctx context.Context, account *entity.MarketplaceAccount, q dto.OrderQuery) (*dto.OrderPageDTO, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	if !q.UpdatedAtGte.IsZero() {
		params.Set("updatedAt.gte", q.UpdatedAtGte.UTC().Format(time.RFC3339))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	var resp ordersResponse
	if err := c.do(ctx, account, http.MethodGet, "/v1/orders?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	page := &dto.OrderPageDTO{NextOffset: resp.NextOffset, Items: make([]dto.OrderSummaryDTO, 0, len(resp.Items))}
	for _, it := range resp.Items {
		page.Items = append(page.Items, dto.OrderSummaryDTO{ID: it.ID, Status: it.Status, UpdatedAt: it.UpdatedAt})
	}
	return page, nil
}

// GetOrderDetails detalle completo de un pedido.
func (c *Client) GetOrderDetails(ctx context.Context, account *entity.MarketplaceAccount, orderID string) (*dto.OrderDetailsDTO, error) {
	var w wireOrder
	if err := c.do(ctx, account, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil, &w); err != nil {
		return nil, err
	}
	details := &dto.OrderDetailsDTO{
		ID:         w.ID,
		Status:     w.Status,
		BuyerLogin: w.Buyer.Login,
		UpdatedAt:  w.UpdatedAt,
		Lines:      make([]dto.OrderLineDTO, 0, len(w.Lines)),
	}
	for _, l := range w.Lines {
		price := decimal.Zero
		if l.Price != "" {
			p, err := decimal.NewFromString(l.Price)
			if err != nil {
				return nil, fmt.Errorf("marketplace: precio inválido en pedido %s: %w", w.ID, err)
			}
			price = p
		}
		details.Lines = append(details.Lines, dto.OrderLineDTO{
			OfferID:   l.OfferID,
			SKU:       l.SKU,
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}
	return details, nil
}

// GetOrderEventsStatistics id del último evento de pedidos de la cuenta.
func (c *Client) GetOrderEventsStatistics(ctx context.Context, account *entity.MarketplaceAccount) (*dto.OrderEventStatsDTO, error) {
	var resp eventStatsResponse
	if err := c.do(ctx, account, http.MethodGet, "/v1/order-events/statistics", nil, &resp); err != nil {
		return nil, err
	}
	return &dto.OrderEventStatsDTO{LatestEventID: resp.LatestEvent.ID}, nil
}

// do ejecuta la petición y traduce el estado HTTP a errores de dominio.
func (c *Client) do(ctx context.Context, account *entity.MarketplaceAccount, method, path string, in, out any) error {
	if account == nil || account.AccessToken == "" {
		return fmt.Errorf("%w: cuenta sin token de acceso", domain.ErrInvalidInput)
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marketplace: serializar request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("marketplace: crear HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("marketplace: timeout o cancelación: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: leer respuesta: %v", domain.ErrTransient, err)
	}

	if err := statusError(resp, raw); err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("marketplace: deserializar respuesta: %w", err)
	}
	return nil
}

// RateLimitedError 429 del marketplace con la espera sugerida por Retry-After.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s (retry-after %s)", domain.ErrRateLimited, e.Wait)
}

func (e *RateLimitedError) Unwrap() error { return domain.ErrRateLimited }

// RetryAfter espera sugerida por el servidor.
func (e *RateLimitedError) RetryAfter() time.Duration { return e.Wait }

func statusError(resp *http.Response, raw []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return &RateLimitedError{Wait: retry.ParseRetryAfter(resp.Header)}
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: marketplace HTTP 404", domain.ErrNotFound)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: marketplace HTTP %d: %s", domain.ErrInvalidInput, code, snippet(raw))
	case code >= 500:
		return fmt.Errorf("%w: marketplace HTTP %d: %s", domain.ErrTransient, code, snippet(raw))
	}
	return fmt.Errorf("marketplace HTTP %d: %s", code, snippet(raw))
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
