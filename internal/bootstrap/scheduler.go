package bootstrap

import (
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/scheduler"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
)

// NewScheduler registers the overdue sweep, ledger gauges and, when
// enabled, the nightly reconciliation archive
func (c *Container) NewScheduler() (*scheduler.Scheduler, error) {
	cfg := c.Config.Scheduler
	s := scheduler.New(scheduler.Config{JobTimeout: cfg.JobTimeout, RunOnStart: true}, c.Logger)
	tenants := telemetry.NewGormTenantProvider(c.Database.DB)

	if err := s.Register(
		scheduler.NewOverdueSweepJob(c.Services.Invoices, tenants, c.Logger),
		scheduler.Every(cfg.OverdueSweepInterval),
	); err != nil {
		return nil, err
	}
	if err := s.Register(
		scheduler.NewLedgerMetricsJob(c.Metrics, tenants),
		scheduler.Every(cfg.MetricsInterval),
	); err != nil {
		return nil, err
	}
	if cfg.ArchiveEnabled {
		if err := s.Register(
			scheduler.NewReconciliationArchiveJob(c.Services.Reconciliation, tenants, c.Logger),
			scheduler.DailyAt{Hour: cfg.ArchiveHour},
		); err != nil {
			return nil, err
		}
	}
	return s, nil
}
