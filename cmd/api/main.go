package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	_ "github.com/jhoicas/stocksync/docs"
	"github.com/jhoicas/stocksync/internal/application/ledger"
	"github.com/jhoicas/stocksync/internal/application/offersync"
	"github.com/jhoicas/stocksync/internal/application/orders"
	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/application/scheduler"
	"github.com/jhoicas/stocksync/internal/application/synclock"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/infrastructure/feed"
	"github.com/jhoicas/stocksync/internal/infrastructure/marketplace"
	"github.com/jhoicas/stocksync/internal/infrastructure/notify"
	infrapdf "github.com/jhoicas/stocksync/internal/infrastructure/pdf"
	infraredis "github.com/jhoicas/stocksync/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stocksync/internal/interfaces/http"
	"github.com/jhoicas/stocksync/pkg/config"
	"github.com/jhoicas/stocksync/pkg/logger"
	"github.com/jhoicas/stocksync/pkg/ratelimit"
	"github.com/jhoicas/stocksync/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Str("rate_limit_backend", cfg.RateLimit.Backend).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openBackend(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a la base de datos")
	}
	defer store.close()

	for _, seed := range cfg.Marketplace.Accounts {
		acc := &entity.MarketplaceAccount{ID: seed.ID, Name: seed.Name, AccessToken: seed.Token, Active: true}
		if err := store.accounts.Upsert(ctx, acc); err != nil {
			log.Fatal().Err(err).Str("account_id", seed.ID).Msg("registrar cuenta de marketplace")
		}
	}

	// Cuotas del marketplace: una instancia por cuota, en memoria o compartida vía Redis.
	var factory ratelimit.Factory = ratelimit.MemoryFactory
	if cfg.RateLimit.Backend == "redis" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		factory = infraredis.Factory(rdb, cfg.Redis.KeyPrefix)
	}
	limiters := ratelimit.NewRegistry(cfg.Marketplace.GlobalRPM, cfg.Marketplace.AccountRPM, factory)
	client := marketplace.NewLimitedClient(
		marketplace.NewClient(cfg.Marketplace.BaseURL, cfg.Marketplace.Timeout),
		limiters, cfg.Marketplace.LimitWait,
	)

	notifier := notify.New(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, log.Component("notify"))

	stockLedger := ledger.NewStockLedger(store.tx, store.stock, store.products, store.sales)
	locks := synclock.NewService(store.locks, cfg.Sync.LockTTL, log.Component("synclock"))

	readPolicy := retry.Exponential(cfg.Sync.MaxAttempts, time.Second, 30*time.Second, 0.2, domain.IsRetryable)
	updatePolicy := retry.Fixed(cfg.Sync.MaxAttempts, cfg.Sync.RetryDelay, nil)
	reconciler := offersync.NewOfferReconciler(client, stockLedger, store.products, readPolicy, log.Component("reconciler"))
	updater := offersync.NewOfferUpdater(client, locks, notifier, updatePolicy, synclock.NewOwner(), log.Component("updater"))

	var reports []ports.ReportWriter
	if cfg.Report.Dir != "" {
		reports = append(reports,
			infrapdf.NewReportWriter(cfg.Report.Dir),
			feed.NewWriter(filepath.Join(cfg.Report.Dir, "stock-feed.xml")),
		)
	}
	orchestrator := offersync.NewOrchestrator(
		store.accounts, store.products, reconciler, updater, reports,
		offersync.Config{BatchSize: cfg.Sync.BatchSize, Workers: cfg.Sync.Workers},
		log.Component("offersync"),
	)
	defer orchestrator.Close()

	mode, err := orders.ParseDeductionMode(cfg.Orders.DeductionMode)
	if err != nil {
		log.Fatal().Err(err).Msg("ORDERS_DEDUCTION_MODE")
	}
	strategy, err := orders.NewDeductionStrategy(mode, store.tx, stockLedger, cfg.Orders.Warehouse)
	if err != nil {
		log.Fatal().Err(err).Msg("estrategia de deducción")
	}
	ingestor := orders.NewIngestor(
		client, store.accounts, store.orders, orders.NewWatermarkStore(store.watermarks), strategy,
		orders.Config{
			PageSize: cfg.Orders.PageSize,
			Window: orders.WindowPolicy{
				InitialLookback: cfg.Orders.InitialLookback,
				Overlap:         cfg.Orders.Overlap,
				SafetyMargin:    cfg.Orders.SafetyMargin,
			},
		},
		log.Component("orders"),
	)

	sched := scheduler.New(log.Component("scheduler"))
	if cfg.Schedule.FullSyncEvery > 0 {
		mustRegister(log, sched, "full_sync", scheduler.Every(cfg.Schedule.FullSyncEvery), fullSyncTask(orchestrator, log.Component("offersync")))
	}
	if cfg.Schedule.OrdersEvery > 0 {
		mustRegister(log, sched, "orders", scheduler.Every(cfg.Schedule.OrdersEvery), ordersTask(ingestor, log.Component("orders")))
	}
	sched.Start()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute * 5,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "StockSync API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Sync:     orchestrator,
		Locks:    locks,
		Orders:   ingestor,
		Ledger:   stockLedger,
		APIToken: cfg.HTTP.APIToken,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	sched.Stop()

	log.Info().Msg("aplicación detenida")
}

func mustRegister(log *logger.Logger, s *scheduler.Scheduler, name string, sched scheduler.Schedule, fn scheduler.Func) {
	if err := s.Register(name, sched, fn); err != nil {
		log.Fatal().Err(err).Str("task", name).Msg("registrar tarea periódica")
	}
}

// fullSyncTask lanza la sincronización completa y espera su fin, así el scheduler omite
// disparos mientras el job anterior sigue corriendo.
func fullSyncTask(o *offersync.Orchestrator, log zerolog.Logger) scheduler.Func {
	return func(ctx context.Context) error {
		jobID, err := o.RunFullSync(ctx)
		if errors.Is(err, domain.ErrNoAccounts) {
			log.Warn().Msg("sin cuentas activas, sincronización omitida")
			return nil
		}
		if err != nil {
			return err
		}
		st, err := o.Await(ctx, jobID)
		if err != nil {
			return err
		}
		log.Info().Str("job_id", jobID).Int("updated", st.Updated).Int("failed", st.Failed).
			Msg("sincronización programada finalizada")
		return nil
	}
}

func ordersTask(i *orders.Ingestor, log zerolog.Logger) scheduler.Func {
	return func(ctx context.Context) error {
		_, err := i.RunAll(ctx)
		if errors.Is(err, domain.ErrNoAccounts) {
			log.Warn().Msg("sin cuentas activas, ingesta omitida")
			return nil
		}
		return err
	}
}
