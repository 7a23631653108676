// Package synclock exclusión mutua por SKU entre procesos, con propiedad acotada en el tiempo.
// El lock es consultivo: solo protege las actualizaciones externas de ofertas.
package synclock

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

// Service adquiere y libera locks sobre el almacenamiento compartido.
type Service struct {
	repo repository.SyncLockRepository
	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger
}

// NewService crea el servicio. ttl <= 0 usa entity.DefaultLockTTL.
func NewService(repo repository.SyncLockRepository, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = entity.DefaultLockTTL
	}
	return &Service{repo: repo, ttl: ttl, now: time.Now, log: log}
}

// TTL vigencia por defecto de un lock.
func (s *Service) TTL() time.Duration { return s.ttl }

// Acquire intenta tomar el lock de sku para owner. Devuelve false si otro dueño lo tiene
// vigente. Un lock in_progress más viejo que ttl se considera abandonado: se toma sin avisar al
// dueño anterior y queda un warn en el log.
func (s *Service) Acquire(ctx context.Context, sku, owner string, ttl time.Duration) (bool, error) {
	sku, owner = strings.TrimSpace(sku), strings.TrimSpace(owner)
	if sku == "" || owner == "" {
		return false, domain.ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	// Lectura previa solo para el log; la decisión la toma TryAcquire de forma atómica.
	prev, err := s.repo.Get(ctx, sku)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.TryAcquire(ctx, sku, owner, ttl, s.now().UTC())
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Debug().Str("sku", sku).Str("owner", owner).Msg("lock ocupado por otra sincronización")
		return false, nil
	}
	if prev != nil && prev.Status == entity.SyncLockInProgress && prev.Owner != owner {
		s.log.Warn().Str("sku", sku).Str("owner", owner).
			Str("previous_owner", prev.Owner).
			Time("previous_acquired_at", prev.AcquiredAt).
			Msg("lock abandonado tomado tras expirar")
	}
	return true, nil
}

// Release deja el lock en estado terminal. Si owner ya no es el dueño (lock tomado tras
// expirar) no se modifica nada.
func (s *Service) Release(ctx context.Context, sku, owner string, status entity.SyncLockStatus, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: estado de liberación %q", domain.ErrInvalidInput, status)
	}
	ok, err := s.repo.Release(ctx, sku, owner, status, truncate(errMsg, 1000), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn().Str("sku", sku).Str("owner", owner).
			Msg("liberación ignorada: el lock ya pertenece a otro dueño")
	}
	return nil
}

// Get último estado del lock (nil si nunca se sincronizó el SKU).
func (s *Service) Get(ctx context.Context, sku string) (*entity.SyncLock, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, domain.ErrInvalidInput
	}
	l, err := s.repo.Get(ctx, sku)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

// NewOwner identificador único de dueño: host, pid y un sufijo aleatorio.
func NewOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// WithClock reemplaza el reloj (pruebas de expiración).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
