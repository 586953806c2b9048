package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/bootstrap"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/logger"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/handler"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Astraline Settlement API
//	@version		1.0
//	@description	Invoice settlement, multi-currency payments and reconciliation for Astraline Logistics.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	telemetry.ServiceVersion = version
	log.Info("Starting Astraline settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	log = c.Logger

	go func() {
		if err := c.RateCache.StartInvalidationSubscription(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Rate invalidation subscription stopped", zap.Error(err))
		}
	}()

	processor := c.NewOutboxProcessor()
	if cfg.Event.ProcessorEnabled {
		processor.Start(ctx)
	}

	sched, err := c.NewScheduler()
	if err != nil {
		log.Fatal("Failed to register scheduled jobs", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		HTTP:           cfg.HTTP,
		Swagger:        cfg.Swagger,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         log,
		JWTService:     c.JWT,
		Blacklist:      c.Blacklist,
		Meter:          c.Meter.Meter(),
		System:         handler.NewSystemHandler(cfg.App.Name, version, c.HealthChecks()),
		Handlers: router.Handlers{
			Invoice:        handler.NewInvoiceHandler(c.Services.Invoices),
			Payment:        handler.NewPaymentHandler(c.Services.Settlements),
			Catalog:        handler.NewCatalogHandler(c.Services.Quotes, c.Services.Rates, c.Services.BankAccounts),
			Reconciliation: handler.NewReconciliationHandler(c.Services.Reconciliation),
			Outbox:         handler.NewOutboxHandler(c.Services.Outbox),
		},
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if cfg.Event.ProcessorEnabled {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox processor did not stop cleanly", zap.Error(err))
		}
	}
	if err := c.Close(shutdownCtx); err != nil {
		log.Warn("Errors while releasing resources", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
