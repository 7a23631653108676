package orders

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

// Valores por defecto de la ventana incremental.
const (
	DefaultInitialLookback = 30 * 24 * time.Hour
	DefaultOverlap         = 10 * 24 * time.Hour
	DefaultSafetyMargin    = 5 * time.Minute
)

// WindowPolicy calcula desde dónde pedir pedidos al marketplace.
type WindowPolicy struct {
	InitialLookback time.Duration // sin watermark: now - InitialLookback
	Overlap         time.Duration // con watermark: guardado - Overlap (re-lee cambios tardíos)
	SafetyMargin    time.Duration // tras la pasada: inicio - SafetyMargin
}

// DefaultWindowPolicy 30 días iniciales, 10 de solape y 5 minutos de margen.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{
		InitialLookback: DefaultInitialLookback,
		Overlap:         DefaultOverlap,
		SafetyMargin:    DefaultSafetyMargin,
	}
}

func (p WindowPolicy) withDefaults() WindowPolicy {
	if p.InitialLookback <= 0 {
		p.InitialLookback = DefaultInitialLookback
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	if p.SafetyMargin < 0 {
		p.SafetyMargin = 0
	}
	return p
}

// WindowStart inicio de la ventana de la pasada que empieza en now.
func (p WindowPolicy) WindowStart(wm *entity.Watermark, now time.Time) time.Time {
	p = p.withDefaults()
	if wm == nil || wm.LastSyncTime.IsZero() {
		return now.Add(-p.InitialLookback)
	}
	return wm.LastSyncTime.Add(-p.Overlap)
}

// Next watermark a guardar tras una pasada exitosa iniciada en passStart.
func (p WindowPolicy) Next(passStart time.Time) time.Time {
	return passStart.Add(-p.withDefaults().SafetyMargin)
}

// WatermarkStore acceso al progreso por cuenta. Advance nunca retrocede; Reset es la única
// forma de volver a la ventana inicial.
type WatermarkStore struct {
	repo repository.WatermarkRepository
}

// NewWatermarkStore crea el store.
func NewWatermarkStore(repo repository.WatermarkRepository) *WatermarkStore {
	return &WatermarkStore{repo: repo}
}

// Get devuelve nil si la cuenta nunca sincronizó.
func (s *WatermarkStore) Get(ctx context.Context, accountID string) (*entity.Watermark, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.Get(ctx, accountID)
}

// Advance guarda syncTime y eventID si syncTime no es anterior al guardado.
func (s *WatermarkStore) Advance(ctx context.Context, accountID string, syncTime time.Time, eventID string, now time.Time) error {
	if strings.TrimSpace(accountID) == "" || syncTime.IsZero() {
		return domain.ErrInvalidInput
	}
	return s.repo.Advance(ctx, &entity.Watermark{
		AccountID:    accountID,
		LastSyncTime: syncTime.UTC(),
		LastEventID:  eventID,
		UpdatedAt:    now.UTC(),
	})
}

// Reset borra el progreso de la cuenta.
func (s *WatermarkStore) Reset(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return domain.ErrInvalidInput
	}
	return s.repo.Reset(ctx, accountID)
}
