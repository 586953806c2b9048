package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls GORM instrumentation.
type DBConfig struct {
	TraceEnabled    bool
	LogFullSQL      bool // keep bind variables in span statements
	SlowQueryThresh time.Duration
	PoolInterval    time.Duration
}

type dbStartKey struct{}

func markStart(db *gorm.DB) {
	if db.Statement.Context == nil {
		db.Statement.Context = context.Background()
	}
	db.Statement.Context = context.WithValue(db.Statement.Context, dbStartKey{}, time.Now())
}

func elapsed(db *gorm.DB) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(dbStartKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// registerAround installs before/after callbacks on every GORM processor.
// after receives the SQL verb, empty for Row and Raw where it is sniffed from the statement.
func registerAround(db *gorm.DB, prefix string, after func(verb string) func(*gorm.DB)) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(prefix+":before_create", markStart),
		cb.Query().Before("gorm:query").Register(prefix+":before_query", markStart),
		cb.Update().Before("gorm:update").Register(prefix+":before_update", markStart),
		cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", markStart),
		cb.Row().Before("gorm:row").Register(prefix+":before_row", markStart),
		cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", markStart),
		cb.Create().After("gorm:create").Register(prefix+":after_create", after("INSERT")),
		cb.Query().After("gorm:query").Register(prefix+":after_query", after("SELECT")),
		cb.Update().After("gorm:update").Register(prefix+":after_update", after("UPDATE")),
		cb.Delete().After("gorm:delete").Register(prefix+":after_delete", after("DELETE")),
		cb.Row().After("gorm:row").Register(prefix+":after_row", after("")),
		cb.Raw().After("gorm:raw").Register(prefix+":after_raw", after("")),
	)
}

func sqlVerb(statement string) string {
	statement = strings.ToUpper(strings.TrimSpace(statement))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(statement, verb) {
			return verb
		}
	}
	return "OTHER"
}

// RegisterDBTracing installs otelgorm and annotates its spans with table,
// row count, errors and a slow_query flag.
func RegisterDBTracing(db *gorm.DB, cfg DBConfig, logger *zap.Logger) error {
	if !cfg.TraceEnabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerAround(db, "astra_trace", func(string) func(*gorm.DB) {
		return func(tx *gorm.DB) { annotateSpan(tx, cfg.SlowQueryThresh) }
	}); err != nil {
		return err
	}
	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

func annotateSpan(db *gorm.DB, slow time.Duration) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
	if d, ok := elapsed(db); ok && slow > 0 && d > slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", d.Milliseconds()),
		)
	}
}

// DBMetrics records query counts, latency and connection pool usage.
type DBMetrics struct {
	queries       *Counter
	slowQueries   *Counter
	queryDuration *Histogram
	poolConns     *Gauge
	slow          time.Duration
	logger        *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// RegisterDBMetrics creates the instruments and hooks them into db.
// Returns nil when metrics are disabled.
func RegisterDBMetrics(db *gorm.DB, mp *MeterProvider, cfg DBConfig, logger *zap.Logger) (*DBMetrics, error) {
	if mp == nil || !mp.IsEnabled() {
		return nil, nil
	}
	m, err := newDBMetrics(mp, cfg.SlowQueryThresh, logger)
	if err != nil {
		return nil, err
	}
	if err := registerAround(db, "astra_metrics", func(verb string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := verb
			if op == "" {
				op = sqlVerb(tx.Statement.SQL.String())
			}
			d, _ := elapsed(tx)
			m.RecordQuery(tx.Statement.Context, op, tx.Statement.Table, d)
		}
	}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		m.startPoolCollection(sqlDB, cfg.PoolInterval)
	}
	return m, nil
}

func newDBMetrics(mp *MeterProvider, slow time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	meter := mp.Meter()
	m := &DBMetrics{slow: slow, logger: logger, stopCh: make(chan struct{})}
	var err error
	if m.queries, err = NewCounter(meter, "astra_db_queries_total", "Database statements executed", "{queries}"); err != nil {
		return nil, err
	}
	if m.slowQueries, err = NewCounter(meter, "astra_db_slow_queries_total", "Statements slower than the threshold", "{queries}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, "astra_db_query_duration", "Statement latency", DBDurationBuckets); err != nil {
		return nil, err
	}
	if m.poolConns, err = NewGauge(meter, "astra_db_pool_connections", "Connections by pool state", "{connections}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.queries.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation))
	if m.slow > 0 && d > m.slow {
		if table == "" {
			table = "unknown"
		}
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

func (m *DBMetrics) recordPool(ctx context.Context, stats sql.DBStats) {
	m.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConns.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max"))
}

func (m *DBMetrics) startPoolCollection(sqlDB *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			m.recordPool(context.Background(), sqlDB.Stats())
			select {
			case <-ticker.C:
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop ends pool collection. Safe on nil and safe to call twice.
func (m *DBMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}
