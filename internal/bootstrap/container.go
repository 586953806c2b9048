// Package bootstrap wires configuration into the running settlement stack:
// telemetry, database, Redis, services, the outbox processor and the
// scheduler. cmd/server and cmd/settlectl share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/application/event"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/auth"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/cache"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	infraevent "github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/event"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/ledger"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/persistence"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/report"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/storage"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Services are the application services exposed over HTTP and the CLI
type Services struct {
	Invoices       *settlementapp.InvoiceService
	Settlements    *settlementapp.SettlementService
	Quotes         *settlementapp.QuoteService
	Rates          *settlementapp.RateService
	BankAccounts   *settlementapp.BankAccountService
	Reconciliation *settlementapp.ReconciliationService
	Outbox         *event.OutboxService
}

// Container owns every long-lived dependency. Close releases them in
// reverse order of construction.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Settings settlementapp.Settings

	Tracer  *telemetry.TracerProvider
	Meter   *telemetry.MeterProvider
	Logs    *telemetry.LoggerProvider
	Metrics *telemetry.BusinessMetrics

	Database    *persistence.Database
	Redis       *redis.Client
	Idempotency shared.IdempotencyStore
	RateCache   *cache.TieredRateTableCache
	Blacklist   auth.TokenBlacklist
	JWT         *auth.JWTService

	Serializer *infraevent.EventSerializer
	Bus        *infraevent.InMemoryEventBus
	OutboxRepo *infraevent.GormOutboxRepository

	Services Services

	closers []func(ctx context.Context) error
}

func (c *Container) onClose(fn func(ctx context.Context) error) {
	c.closers = append(c.closers, fn)
}

// Build connects the stack. Redis is optional: when it is unreachable the
// caches, blacklist and idempotency store run in memory and ledger export
// is disabled.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}
	if err := c.build(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	cfg := c.Config

	settings, err := settlementapp.SettingsFromConfig(cfg.Settlement)
	if err != nil {
		return err
	}
	c.Settings = settings

	if err := c.buildTelemetry(ctx); err != nil {
		return err
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        c.Logger,
		LogLevel:      cfg.Log.Level,
		Telemetry:     cfg.Telemetry,
		MeterProvider: c.Meter,
	})
	if err != nil {
		return err
	}
	c.Database = db
	c.onClose(func(context.Context) error { return db.Close() })
	c.Logger.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	metrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:          c.Meter.Meter(),
		Logger:         c.Logger,
		LedgerProvider: telemetry.NewGormLedgerMetricsProvider(db.DB),
	})
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	c.Metrics = metrics

	c.buildRedis(ctx)

	idemp, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(c.Logger)).CreateStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create idempotency store: %w", err)
	}
	c.Idempotency = idemp
	c.onClose(func(context.Context) error { return idemp.Close() })

	c.JWT = auth.NewJWTService(cfg.JWT)

	c.Serializer = infraevent.NewEventSerializer()
	infraevent.RegisterSettlementEvents(c.Serializer)
	c.Bus = infraevent.NewInMemoryEventBus(c.Logger)
	c.OutboxRepo = infraevent.NewGormOutboxRepository(db.DB)

	return c.buildServices(ctx)
}

func (c *Container) buildTelemetry(ctx context.Context) error {
	cfg := c.Config.Telemetry
	tcfg := telemetry.Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}

	tracer, err := telemetry.NewTracerProvider(ctx, tcfg, c.Logger)
	if err != nil {
		return err
	}
	c.Tracer = tracer
	c.onClose(tracer.Shutdown)

	meter, err := telemetry.NewMeterProvider(ctx, tcfg, time.Minute, c.Logger)
	if err != nil {
		return err
	}
	c.Meter = meter
	c.onClose(meter.Shutdown)

	logs, err := telemetry.NewLoggerProvider(ctx, tcfg)
	if err != nil {
		return err
	}
	c.Logs = logs
	c.onClose(logs.Shutdown)
	if logs.IsEnabled() {
		c.Logger = logs.Bridge(c.Logger, zap.InfoLevel)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.ProfilingEndpoint,
		ApplicationName: cfg.ServiceName,
	}, tracer, c.Logger)
	if err != nil {
		return err
	}
	c.onClose(func(context.Context) error { return profiler.Stop() })
	return nil
}

func (c *Container) buildRedis(ctx context.Context) {
	l1 := cache.NewInMemoryRateTableCache(c.Config.Settlement.RateCacheTTL)

	client, err := cache.NewRedisClient(ctx, c.Config.Redis)
	if err != nil {
		c.Logger.Warn("Redis unavailable, using in-memory caches; ledger export disabled", zap.Error(err))
		c.RateCache = cache.NewTieredRateTableCache(l1, cache.NewInMemoryRateTableCache(c.Config.Settlement.RateCacheTTL), nil, c.Logger)
		c.Blacklist = auth.NewInMemoryTokenBlacklist()
		return
	}
	c.Redis = client
	c.onClose(func(context.Context) error { return client.Close() })

	invalidator := cache.NewRedisRateInvalidator(client, "", c.Logger)
	c.onClose(func(context.Context) error { return invalidator.Close() })
	c.RateCache = cache.NewTieredRateTableCache(l1, cache.NewRedisRateTableCache(client, c.Config.Settlement.RateCacheTTL), invalidator, c.Logger)
	c.Blacklist = auth.NewRedisTokenBlacklist(client)
}

func (c *Container) buildServices(ctx context.Context) error {
	db := c.Database.DB
	opts := []settlementapp.Option{
		settlementapp.WithLogger(c.Logger),
		settlementapp.WithMetrics(c.Metrics),
	}

	publisher := infraevent.NewOutboxPublisher(c.Serializer, c.Config.Event.MaxRetries)
	scope := persistence.NewGormSettlementTransactionScope(db, publisher)

	bankRepo := persistence.NewGormBankAccountRepository(db)
	paymentRepo := persistence.NewGormPaymentRepository(db)
	journalRepo := persistence.NewGormJournalRepository(db)
	chargeRepo := persistence.NewGormChargeRateRepository(db)

	rates := settlementapp.NewRateService(persistence.NewGormExchangeRateRepository(db), chargeRepo, c.RateCache, c.Settings, opts...)
	quotes := settlementapp.NewQuoteService(chargeRepo, rates, c.Settings, opts...)

	var store settlementapp.ReportStore
	if c.Config.Storage.Enabled {
		s3Store, err := storage.NewS3ReportStore(ctx, &c.Config.Storage, storage.WithLogger(c.Logger))
		if err != nil {
			return err
		}
		store = s3Store
	}

	c.Services = Services{
		Invoices:     settlementapp.NewInvoiceService(persistence.NewGormInvoiceRepository(db), scope, quotes, c.Settings, opts...),
		Settlements:  settlementapp.NewSettlementService(scope, paymentRepo, c.Idempotency, c.Settings, opts...),
		Quotes:       quotes,
		Rates:        rates,
		BankAccounts: settlementapp.NewBankAccountService(bankRepo, c.Settings, opts...),
		Reconciliation: settlementapp.NewReconciliationService(
			scope, bankRepo, paymentRepo, journalRepo,
			report.NewXLSXRenderer(), store, c.Settings, opts...,
		),
		Outbox: event.NewOutboxService(c.OutboxRepo, c.OutboxRepo, c.Logger),
	}

	if c.Redis != nil {
		sink := ledger.NewRedisStreamSink(c.Redis, c.Config.Settlement.LedgerStream)
		exporter := settlementapp.NewLedgerExportHandler(sink, journalRepo, opts...)
		c.Bus.Subscribe(infraevent.NewIdempotentHandler(exporter, c.Idempotency, c.Settings.IdempotencyTTL, c.Logger))
		c.Logger.Info("Ledger export enabled", zap.String("stream", sink.Stream()))
	}
	return nil
}

// NewOutboxProcessor builds the processor delivering stored events to the bus
func (c *Container) NewOutboxProcessor() *infraevent.OutboxProcessor {
	ev := c.Config.Event
	return infraevent.NewOutboxProcessor(c.OutboxRepo, c.Bus, c.Serializer, infraevent.OutboxProcessorConfig{
		BatchSize:        ev.BatchSize,
		PollInterval:     ev.PollInterval,
		CleanupEnabled:   ev.CleanupEnabled,
		CleanupRetention: ev.CleanupRetention,
		CleanupInterval:  time.Hour,
	}, c.Logger, c.Metrics)
}

// Close releases resources in reverse order. All errors are returned joined.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
