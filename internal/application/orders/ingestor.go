// Package orders ingesta incremental de pedidos del marketplace y deducción de stock
// exactamente una vez por pedido.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
	"github.com/jhoicas/stocksync/pkg/retry"
)

// State fase de la pasada de una cuenta.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StatePaging    State = "paging"
	StateDeducting State = "deducting"
)

const (
	DefaultPageSize = 100
	sortByUpdatedAt = "updatedAt"
)

// Config parámetros de la ingesta.
type Config struct {
	PageSize int
	// Window valor cero = DefaultWindowPolicy.
	Window WindowPolicy
	// Retry política para las llamadas de lectura al marketplace.
	Retry retry.Policy
}

// Ingestor ejecuta pasadas Idle -> Fetching -> Paging -> Deducting -> Idle por cuenta.
// El watermark solo avanza cuando la pasada completa termina bien.
type Ingestor struct {
	client     ports.MarketplaceClient
	accounts   repository.AccountRepository
	orders     repository.OrderRepository
	watermarks *WatermarkStore
	strategy   DeductionStrategy
	cfg        Config
	now        func() time.Time
	log        zerolog.Logger

	mu     sync.Mutex
	states map[string]State
}

// NewIngestor crea el ingestor.
func NewIngestor(
	client ports.MarketplaceClient,
	accounts repository.AccountRepository,
	orders repository.OrderRepository,
	watermarks *WatermarkStore,
	strategy DeductionStrategy,
	cfg Config,
	log zerolog.Logger,
) *Ingestor {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Window == (WindowPolicy{}) {
		cfg.Window = DefaultWindowPolicy()
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.Exponential(3, 500*time.Millisecond, 5*time.Second, 0.2, domain.IsRetryable)
	}
	return &Ingestor{
		client:     client,
		accounts:   accounts,
		orders:     orders,
		watermarks: watermarks,
		strategy:   strategy,
		cfg:        cfg,
		now:        time.Now,
		log:        log,
		states:     make(map[string]State),
	}
}

// WithClock reemplaza el reloj (pruebas de ventana).
func (i *Ingestor) WithClock(now func() time.Time) *Ingestor {
	i.now = now
	return i
}

// State fase actual de la cuenta (idle si no hay pasada en curso).
func (i *Ingestor) State(accountID string) State {
	i.mu.Lock()
	defer i.mu.Unlock()
	if s, ok := i.states[accountID]; ok {
		return s
	}
	return StateIdle
}

func (i *Ingestor) setState(accountID string, s State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if s == StateIdle {
		delete(i.states, accountID)
		return
	}
	i.states[accountID] = s
}

// begin marca la cuenta como ocupada; ErrConflict si ya hay una pasada en curso.
func (i *Ingestor) begin(accountID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.states[accountID]; busy {
		return fmt.Errorf("%w: pasada de pedidos en curso para %s", domain.ErrConflict, accountID)
	}
	i.states[accountID] = StateFetching
	return nil
}

// RunAll ejecuta una pasada por cada cuenta activa. Un fallo en una cuenta no detiene al resto.
func (i *Ingestor) RunAll(ctx context.Context) ([]*dto.OrderPassDTO, error) {
	accounts, err := i.accounts.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}
	var (
		results []*dto.OrderPassDTO
		errs    []error
	)
	for _, acc := range accounts {
		res, err := i.runAccount(ctx, acc)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				i.log.Info().Str("account_id", acc.ID).Msg("pasada anterior aún activa, se omite")
				continue
			}
			errs = append(errs, fmt.Errorf("cuenta %s: %w", acc.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Run ejecuta una pasada para la cuenta indicada.
func (i *Ingestor) Run(ctx context.Context, accountID string) (*dto.OrderPassDTO, error) {
	acc, err := i.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return i.runAccount(ctx, acc)
}

// ResetWatermark borra el progreso; la próxima pasada usa la ventana inicial.
func (i *Ingestor) ResetWatermark(ctx context.Context, accountID string) error {
	if _, err := i.accounts.GetByID(ctx, accountID); err != nil {
		return err
	}
	return i.watermarks.Reset(ctx, accountID)
}

func (i *Ingestor) runAccount(ctx context.Context, acc *entity.MarketplaceAccount) (*dto.OrderPassDTO, error) {
	if err := i.begin(acc.ID); err != nil {
		return nil, err
	}
	defer i.setState(acc.ID, StateIdle)

	log := i.log.With().Str("account_id", acc.ID).Logger()
	passStart := i.now().UTC()

	// Fetching: ventana y cursor de eventos antes de paginar.
	wm, err := i.watermarks.Get(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	from := i.cfg.Window.WindowStart(wm, passStart)
	var stats *dto.OrderEventStatsDTO
	err = i.cfg.Retry.Do(ctx, func(int) error {
		var err error
		stats, err = i.client.GetOrderEventsStatistics(ctx, acc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("estadísticas de eventos: %w", err)
	}

	result := &dto.OrderPassDTO{AccountID: acc.ID, WindowFrom: from}

	// Paging.
	i.setState(acc.ID, StatePaging)
	candidates, err := i.page(ctx, acc, from, passStart, result)
	if err != nil {
		return nil, err
	}

	// Deducting.
	i.setState(acc.ID, StateDeducting)
	for _, id := range candidates {
		outcome, err := i.strategy.Apply(ctx, acc.ID, id)
		if err != nil {
			result.DeductionErrors++
			log.Warn().Err(err).Str("order_id", id).Msg("no se pudo deducir stock del pedido")
			continue
		}
		if outcome == DeductionApplied {
			result.Deducted++
		}
	}

	next := i.cfg.Window.Next(passStart)
	eventID := ""
	if stats != nil {
		eventID = stats.LatestEventID
	}
	if err := i.watermarks.Advance(ctx, acc.ID, next, eventID, i.now()); err != nil {
		return nil, fmt.Errorf("avanzar watermark: %w", err)
	}
	result.NextWatermark = next

	log.Info().
		Time("window_from", from).
		Int("fetched", result.Fetched).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("deducted", result.Deducted).
		Int("deduction_errors", result.DeductionErrors).
		Str("mode", string(i.strategy.Mode())).
		Msg("pasada de pedidos completada")
	return result, nil
}

// page recorre las páginas ordenadas por updatedAt, persiste cada pedido y devuelve los ids
// candidatos a deducción en orden de llegada.
func (i *Ingestor) page(ctx context.Context, acc *entity.MarketplaceAccount, from, syncedAt time.Time, result *dto.OrderPassDTO) ([]string, error) {
	var candidates []string
	seen := make(map[string]struct{})
	offset := 0
	for {
		var pg *dto.OrderPageDTO
		err := i.cfg.Retry.Do(ctx, func(int) error {
			var err error
			pg, err = i.client.GetOrders(ctx, acc, dto.OrderQuery{
				Offset:       offset,
				Limit:        i.cfg.PageSize,
				UpdatedAtGte: from,
				Sort:         sortByUpdatedAt,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("página de pedidos (offset %d): %w", offset, err)
		}

		items := append([]dto.OrderSummaryDTO(nil), pg.Items...)
		sort.SliceStable(items, func(a, b int) bool { return items[a].UpdatedAt.Before(items[b].UpdatedAt) })

		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}

			var details *dto.OrderDetailsDTO
			err := i.cfg.Retry.Do(ctx, func(int) error {
				var err error
				details, err = i.client.GetOrderDetails(ctx, acc, item.ID)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("detalle del pedido %s: %w", item.ID, err)
			}
			order := toOrder(acc.ID, details, syncedAt)
			if err := i.upsert(ctx, order, result); err != nil {
				return nil, fmt.Errorf("guardar pedido %s: %w", order.ExternalID, err)
			}
			result.Fetched++
			if order.Deductible() {
				candidates = append(candidates, order.ExternalID)
			}
		}

		// Solo una página corta cierra la pasada; nextOffset es opcional.
		if len(pg.Items) < i.cfg.PageSize {
			return candidates, nil
		}
		next := offset + len(pg.Items)
		if pg.NextOffset != nil {
			next = *pg.NextOffset
		}
		if next <= offset {
			return nil, fmt.Errorf("%w: next_offset %d no avanza", domain.ErrTransient, next)
		}
		offset = next
	}
}

// upsert inserta; si otro proceso lo insertó antes (clave duplicada) reintenta como update.
func (i *Ingestor) upsert(ctx context.Context, order *entity.Order, result *dto.OrderPassDTO) error {
	err := i.orders.Insert(ctx, order)
	if err == nil {
		result.Inserted++
		return nil
	}
	if !errors.Is(err, domain.ErrDuplicate) {
		return err
	}
	applied, err := i.orders.Update(ctx, order)
	if err != nil {
		return err
	}
	if applied {
		result.Updated++
	}
	return nil
}

func toOrder(accountID string, d *dto.OrderDetailsDTO, syncedAt time.Time) *entity.Order {
	lines := make([]entity.OrderLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, entity.OrderLine{
			OfferID:   l.OfferID,
			SKU:       l.SKU,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return &entity.Order{
		ExternalID: d.ID,
		AccountID:  accountID,
		Status:     d.Status,
		BuyerLogin: d.BuyerLogin,
		Lines:      lines,
		UpdatedAt:  d.UpdatedAt.UTC(),
		CreatedAt:  syncedAt,
		SyncedAt:   syncedAt,
	}
}
