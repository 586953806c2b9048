package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/logger"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB      *gorm.DB
	metrics *telemetry.DBMetrics
}

// Options tune logging and instrumentation of the connection
type Options struct {
	Logger        *zap.Logger
	LogLevel      string
	Telemetry     config.TelemetryConfig
	MeterProvider *telemetry.MeterProvider
}

// NewDatabase opens the postgres connection, sizes the pool and installs
// the zap GORM logger plus tracing and metrics callbacks.
func NewDatabase(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(opts.LogLevel), opts.Telemetry.DBSlowQueryThresh, opts.Telemetry.DBLogFullSQL)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{DB: db}
	if err := d.instrument(opts, log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) instrument(opts Options, log *zap.Logger) error {
	dbCfg := telemetry.DBConfig{
		TraceEnabled:    opts.Telemetry.Enabled && opts.Telemetry.DBTraceEnabled,
		LogFullSQL:      opts.Telemetry.DBLogFullSQL,
		SlowQueryThresh: opts.Telemetry.DBSlowQueryThresh,
	}
	if err := telemetry.RegisterDBTracing(d.DB, dbCfg, log); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}
	metrics, err := telemetry.RegisterDBMetrics(d.DB, opts.MeterProvider, dbCfg, log)
	if err != nil {
		return fmt.Errorf("failed to register database metrics: %w", err)
	}
	d.metrics = metrics
	return nil
}

// Close stops pool metrics and closes the connection
func (d *Database) Close() error {
	d.metrics.Stop()
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// Stats returns connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
	}, nil
}
