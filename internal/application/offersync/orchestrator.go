package offersync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

const (
	DefaultBatchSize = 100
	DefaultWorkers   = 8
	skuPageSize      = 1000
)

// Config tamaño de lote y paralelismo.
type Config struct {
	BatchSize int
	Workers   int
}

// Reconciler contrato de OfferReconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, account *entity.MarketplaceAccount, skus []string) ([]dto.UpdateJob, int, error)
}

// Updater contrato de OfferUpdater.
type Updater interface {
	Execute(ctx context.Context, account *entity.MarketplaceAccount, job dto.UpdateJob) dto.SyncResultDTO
}

// Orchestrator reparte un job de sincronización en lotes (cuenta, SKUs), los ejecuta en
// paralelo acotado y agrega los resultados en una barrera de fan-in.
type Orchestrator struct {
	accounts   repository.AccountRepository
	products   repository.ProductRepository
	reconciler Reconciler
	updater    Updater
	reports    []ports.ReportWriter
	cfg        Config
	jobs       *jobRegistry
	now        func() time.Time
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator crea el orquestador. Los jobs corren en segundo plano hasta Close.
func NewOrchestrator(
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	reconciler Reconciler,
	updater Updater,
	reports []ports.ReportWriter,
	cfg Config,
	log zerolog.Logger,
) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		accounts:   accounts,
		products:   products,
		reconciler: reconciler,
		updater:    updater,
		reports:    reports,
		cfg:        cfg,
		jobs:       newJobRegistry(),
		now:        time.Now,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RunFullSync sincroniza todos los SKUs en todas las cuentas activas.
func (o *Orchestrator) RunFullSync(ctx context.Context) (string, error) {
	accounts, err := o.activeAccounts(ctx)
	if err != nil {
		return "", err
	}
	skus, err := o.allSKUs(ctx)
	if err != nil {
		return "", err
	}
	return o.start(JobKindFull, accounts, skus), nil
}

// RunAccountSync sincroniza todos los SKUs de una cuenta.
func (o *Orchestrator) RunAccountSync(ctx context.Context, accountID string) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", domain.ErrInvalidInput
	}
	acc, err := o.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !acc.Active {
		return "", fmt.Errorf("%w: cuenta %s inactiva", domain.ErrNotFound, accountID)
	}
	skus, err := o.allSKUs(ctx)
	if err != nil {
		return "", err
	}
	return o.start(JobKindAccount, []*entity.MarketplaceAccount{acc}, skus), nil
}

// RunSkuSync sincroniza un SKU en todas las cuentas activas.
func (o *Orchestrator) RunSkuSync(ctx context.Context, sku string) (string, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return "", domain.ErrInvalidInput
	}
	p, err := o.products.GetBySKU(ctx, sku)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", domain.ErrNotFound
	}
	accounts, err := o.activeAccounts(ctx)
	if err != nil {
		return "", err
	}
	return o.start(JobKindSKU, accounts, []string{sku}), nil
}

// Status estado de un job.
func (o *Orchestrator) Status(jobID string) (dto.JobStatusDTO, bool) {
	j, ok := o.jobs.get(jobID)
	if !ok {
		return dto.JobStatusDTO{}, false
	}
	return j.snapshot(), true
}

// Await bloquea hasta que el job termine o ctx se cancele.
func (o *Orchestrator) Await(ctx context.Context, jobID string) (dto.JobStatusDTO, error) {
	j, ok := o.jobs.get(jobID)
	if !ok {
		return dto.JobStatusDTO{}, domain.ErrNotFound
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

// Wait espera a que terminen los jobs en curso.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancela los jobs en curso y espera su fin.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) activeAccounts(ctx context.Context) ([]*entity.MarketplaceAccount, error) {
	accounts, err := o.accounts.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}
	return accounts, nil
}

func (o *Orchestrator) allSKUs(ctx context.Context) ([]string, error) {
	var all []string
	for offset := 0; ; offset += skuPageSize {
		page, err := o.products.ListSKUs(ctx, skuPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < skuPageSize {
			return all, nil
		}
	}
}

type batch struct {
	account *entity.MarketplaceAccount
	skus    []string
}

func (o *Orchestrator) partition(accounts []*entity.MarketplaceAccount, skus []string) []batch {
	var out []batch
	for _, acc := range accounts {
		for start := 0; start < len(skus); start += o.cfg.BatchSize {
			end := min(start+o.cfg.BatchSize, len(skus))
			out = append(out, batch{account: acc, skus: skus[start:end]})
		}
	}
	return out
}

// start registra el job y lo lanza en segundo plano; devuelve el id de inmediato.
func (o *Orchestrator) start(kind string, accounts []*entity.MarketplaceAccount, skus []string) string {
	j := o.jobs.create(kind, o.now().UTC())
	jobID := j.status.ID
	batches := o.partition(accounts, skus)
	log := o.log.With().Str("job_id", jobID).Str("kind", kind).Logger()
	log.Info().Int("accounts", len(accounts)).Int("skus", len(skus)).Int("batches", len(batches)).
		Msg("job de sincronización iniciado")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(o.ctx, j, batches, log)
	}()
	return jobID
}

func (o *Orchestrator) execute(ctx context.Context, j *job, batches []batch, log zerolog.Logger) {
	group := NewGroup(len(batches), func(results []dto.SyncResultDTO) {
		o.complete(ctx, j, results, log)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for _, b := range batches {
		g.Go(func() error {
			results, inSync := o.runBatch(gctx, b, log)
			j.add(results, inSync)
			group.Report(results)
			return nil
		})
	}
	_ = g.Wait()
	<-group.Done()
}

// runBatch reconcilia un lote y ejecuta sus UpdateJobs; devuelve también las ofertas ya al día.
// Un fallo de reconciliación marca todos los SKUs del lote como fallidos.
func (o *Orchestrator) runBatch(ctx context.Context, b batch, log zerolog.Logger) ([]dto.SyncResultDTO, int) {
	jobs, inSync, err := o.reconciler.Reconcile(ctx, b.account, b.skus)
	if err != nil {
		log.Error().Err(err).Str("account_id", b.account.ID).Int("skus", len(b.skus)).Msg("falló la reconciliación del lote")
		out := make([]dto.SyncResultDTO, 0, len(b.skus))
		for _, sku := range b.skus {
			out = append(out, dto.SyncResultDTO{
				Job:     dto.UpdateJob{AccountID: b.account.ID, SKU: sku},
				Outcome: dto.OutcomeFailed,
				Error:   err.Error(),
			})
		}
		return out, 0
	}
	out := make([]dto.SyncResultDTO, 0, len(jobs))
	for _, uj := range jobs {
		if ctx.Err() != nil {
			out = append(out, dto.SyncResultDTO{Job: uj, Outcome: dto.OutcomeFailed, Error: ctx.Err().Error()})
			continue
		}
		out = append(out, o.updater.Execute(ctx, b.account, uj))
	}
	return out, inSync
}

// complete paso final del fan-in: informes y cierre del job. Await retorna con los informes ya escritos.
func (o *Orchestrator) complete(ctx context.Context, j *job, results []dto.SyncResultDTO, log zerolog.Logger) {
	errMsg := ""
	if ctx.Err() != nil {
		errMsg = ctx.Err().Error()
	}
	status := j.final(o.now().UTC(), errMsg)
	report := &dto.SyncReportDTO{Status: status, Results: results}
	for _, w := range o.reports {
		if err := w.WriteReport(context.WithoutCancel(ctx), report); err != nil {
			log.Error().Err(err).Msg("no se pudo escribir el informe de sincronización")
		}
	}
	j.finish(status)
	log.Info().
		Int("processed", status.Processed).
		Int("in_sync", status.InSync).
		Int("updated", status.Updated).
		Int("skipped", status.Skipped).
		Int("failed", status.Failed).
		Msg("job de sincronización finalizado")
}
