package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/app"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/clock"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/config"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/events"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/lease"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/metrics"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/pricing"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/storage/memory"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/storage/postgres"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/tracing"
	transporthttp "github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/transport/http"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const reaperLeaseKey = "order-intents:reaper-lease"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api exited")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "order-intent-api").Logger()
}

// backend is the set of repositories one storage driver provides.
type backend struct {
	tx        app.Transactor
	ledger    app.StockLedger
	intents   app.IntentRepository
	locks     app.LockRepository
	orders    app.OrderRepository
	catalog   app.Catalog
	addresses app.AddressBook
	health    map[string]transporthttp.HealthCheck
	close     func()
}

func openBackend(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*backend, error) {
	if cfg.Driver == config.DriverMemory {
		store := memory.NewStore()
		if cfg.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.SeedFile); err != nil {
				return nil, err
			}
			logger.Info().Str("seed_file", cfg.SeedFile).Msg("memory store seeded")
		}
		logger.Warn().Msg("using in-memory storage; state is lost on restart")
		return &backend{
			tx:        store,
			ledger:    store.Ledger(),
			intents:   store,
			locks:     store,
			orders:    store,
			catalog:   store,
			addresses: store,
			health:    map[string]transporthttp.HealthCheck{},
			close:     func() {},
		}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(startupCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info().Strs("migrations", applied).Msg("migrations applied")
	}

	catalog := postgres.NewCatalogRepository(pool)
	return &backend{
		tx:        postgres.NewTransactor(pool),
		ledger:    postgres.NewStockLedger(pool),
		intents:   postgres.NewIntentRepository(pool),
		locks:     postgres.NewLockRepository(pool),
		orders:    postgres.NewOrderRepository(pool),
		catalog:   catalog,
		addresses: catalog,
		health: map[string]transporthttp.HealthCheck{
			"postgres": pool.Ping,
		},
		close: pool.Close,
	}, nil
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()
	if cfg.Tracing.JaegerEndpoint != "" {
		logger.Info().Str("endpoint", cfg.Tracing.JaegerEndpoint).Msg("tracing enabled")
	}

	be, err := openBackend(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer be.close()

	var publisher app.EventPublisher = events.NewLogPublisher(logger.With().Str("component", "events").Logger())
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn().Err(err).Msg("kafka writer close")
			}
		}()
		publisher = kp
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	}

	rec := metrics.New()
	clk := clock.NewSystem()

	reaperOpts := []app.ReaperOption{
		app.WithReaperInterval(cfg.Checkout.ReaperInterval),
		app.WithReaperBatchSize(cfg.Checkout.ReaperBatchSize),
		app.WithReaperEvents(publisher),
		app.WithReaperMetrics(rec),
		app.WithReaperLogger(logger.With().Str("component", "reaper").Logger()),
	}
	if cfg.Redis.Enabled() {
		client, err := lease.NewClient(ctx, lease.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		be.health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		reaperOpts = append(reaperOpts, app.WithReaperLease(lease.NewRedisLease(client, reaperLeaseKey, cfg.Checkout.ReaperLeaseTTL)))
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("reaper lease enabled")
	}

	lockMgr := app.NewLockManager(be.tx, be.ledger, be.locks, be.catalog, clk,
		app.WithLockMetrics(rec),
		app.WithLockLogger(logger.With().Str("component", "locks").Logger()),
	)
	policy := app.PricingPolicy{
		Discounts: pricing.NewStaticDiscounts(cfg.Pricing.DiscountCodes),
		Tax:       pricing.NewPercentTax(cfg.Pricing.TaxRate),
		Shipping:  pricing.NewFlatShipping(cfg.Pricing.ShippingFlat, cfg.Pricing.FreeShippingOver),
	}
	intentSvc := app.NewIntentService(be.tx, be.intents, be.locks, lockMgr, be.catalog, be.addresses, policy, clk,
		app.WithHoldDuration(cfg.Checkout.HoldDuration),
		app.WithIntentEvents(publisher),
		app.WithIntentMetrics(rec),
		app.WithIntentLogger(logger.With().Str("component", "intents").Logger()),
	)
	converter := app.NewConversionCoordinator(be.tx, be.intents, be.orders, lockMgr, clk,
		app.WithConversionEvents(publisher),
		app.WithConversionMetrics(rec),
		app.WithConversionLogger(logger.With().Str("component", "conversion").Logger()),
	)
	reaper := app.NewReaper(be.tx, be.intents, be.locks, lockMgr, clk, reaperOpts...)

	if cfg.Checkout.WebhookSecret == "" {
		logger.Warn().Msg("WEBHOOK_SECRET not set; payment confirmations will be rejected")
	}

	server := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: transporthttp.NewRouter(transporthttp.RouterConfig{
			Intents:        intentSvc,
			Converter:      converter,
			WebhookSecret:  cfg.Checkout.WebhookSecret,
			Metrics:        rec,
			Health:         be.health,
			AllowedOrigins: cfg.CORS.Origins,
			Logger:         logger.With().Str("component", "http").Logger(),
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("storage", cfg.Storage.Driver).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return reaper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
