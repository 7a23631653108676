package offersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/pkg/retry"
)

// Locker lock distribuido por SKU (synclock.Service).
type Locker interface {
	Acquire(ctx context.Context, sku, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, sku, owner string, status entity.SyncLockStatus, errMsg string) error
}

// OfferUpdater ejecuta un UpdateJob: lock del SKU, llamada limitada al marketplace y
// liberación con el estado final. Cada intento vuelve a tomar el lock.
type OfferUpdater struct {
	client   ports.MarketplaceClient
	locks    Locker
	notifier ports.Notifier
	policy   retry.Policy
	owner    string
	log      zerolog.Logger
}

// NewOfferUpdater crea el ejecutor. owner identifica al proceso en los locks.
func NewOfferUpdater(client ports.MarketplaceClient, locks Locker, notifier ports.Notifier, policy retry.Policy, owner string, log zerolog.Logger) *OfferUpdater {
	if policy.Retryable == nil {
		policy.Retryable = retryableUpdate
	}
	return &OfferUpdater{client: client, locks: locks, notifier: notifier, policy: policy, owner: owner, log: log}
}

// retryableUpdate reintenta todo salvo errores de validación o datos inexistentes.
func retryableUpdate(err error) bool {
	return !errors.Is(err, domain.ErrInvalidInput) &&
		!errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrInsufficientStock)
}

// Execute aplica el job y devuelve su resultado. Nunca propaga el error: otras ofertas del
// lote no se ven afectadas.
func (u *OfferUpdater) Execute(ctx context.Context, account *entity.MarketplaceAccount, job dto.UpdateJob) dto.SyncResultDTO {
	log := u.log.With().Str("account_id", job.AccountID).Str("sku", job.SKU).Str("offer_id", job.OfferID).Logger()
	owner := u.owner + "/" + uuid.NewString()[:8]
	attempts := 0

	err := u.policy.Do(ctx, func(attempt int) error {
		attempts = attempt
		ok, err := u.locks.Acquire(ctx, job.SKU, owner, 0)
		if err != nil {
			return err
		}
		if !ok {
			return retry.Permanent(domain.ErrLockContention)
		}
		if err := u.client.UpdateOfferStock(ctx, account, job.OfferID, job.TargetQty); err != nil {
			if rerr := u.locks.Release(ctx, job.SKU, owner, entity.SyncLockError, err.Error()); rerr != nil {
				log.Error().Err(rerr).Msg("no se pudo liberar el lock")
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("falló la actualización de stock de la oferta")
			return err
		}
		if rerr := u.locks.Release(ctx, job.SKU, owner, entity.SyncLockSuccess, ""); rerr != nil {
			log.Error().Err(rerr).Msg("no se pudo liberar el lock")
		}
		return nil
	})

	res := dto.SyncResultDTO{Job: job, Attempts: attempts}
	switch {
	case err == nil:
		res.Outcome = dto.OutcomeUpdated
		log.Info().Int("from", job.PublishedQty).Int("to", job.TargetQty).Msg("stock de oferta actualizado")
	case errors.Is(err, domain.ErrLockContention):
		res.Outcome = dto.OutcomeSkipped
		res.Error = err.Error()
		log.Info().Msg("SKU bloqueado por otra sincronización, se omite")
	default:
		if errors.Is(err, retry.ErrExhausted) {
			err = fmt.Errorf("%w: %w", domain.ErrRetriesExhausted, err)
		}
		res.Outcome = dto.OutcomeFailed
		res.Error = err.Error()
		log.Error().Err(err).Int("attempts", attempts).Msg("sincronización de oferta fallida")
		u.alert(ctx, job, attempts, err)
	}
	return res
}

func (u *OfferUpdater) alert(ctx context.Context, job dto.UpdateJob, attempts int, cause error) {
	if u.notifier == nil {
		return
	}
	msg := fmt.Sprintf("⚠️ Sincronización fallida\nCuenta: %s\nSKU: %s\nOferta: %s\nStock objetivo: %d (publicado %d)\nIntentos: %d\nError: %s",
		job.AccountID, job.SKU, job.OfferID, job.TargetQty, job.PublishedQty, attempts, cause)
	if err := u.notifier.SendMessage(ctx, msg); err != nil {
		u.log.Error().Err(err).Str("sku", job.SKU).Msg("no se pudo enviar la alerta")
	}
}
