package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Job names
const (
	JobOverdueSweep          = "overdue_sweep"
	JobLedgerMetrics         = "ledger_metrics"
	JobReconciliationArchive = "reconciliation_archive"
)

// TenantProvider lists the tenants a job iterates over
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OverdueMarker flags a tenant's late invoices
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, actor shared.Actor) (*settlementapp.OverdueSweepResponse, error)
}

// ReportArchiver uploads a tenant's reconciliation workbook
type ReportArchiver interface {
	Archive(ctx context.Context, actor shared.Actor) (*settlementapp.ArchiveResponse, error)
}

// LedgerMetricsCollector refreshes the ledger gauges
type LedgerMetricsCollector interface {
	CollectLedgerMetrics(ctx context.Context, tenants telemetry.TenantProvider) error
}

// forEachTenant runs fn with a system actor per tenant. A failing tenant does
// not stop the others; all failures are joined into the result.
func forEachTenant(ctx context.Context, tenants TenantProvider, fn func(ctx context.Context, actor shared.Actor) error) error {
	ids, err := tenants.GetActiveTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := fn(ctx, shared.SystemActor(id)); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// NewOverdueSweepJob marks pending invoices past their due date as overdue
func NewOverdueSweepJob(marker OverdueMarker, tenants TenantProvider, logger *zap.Logger) Job {
	return JobFunc{
		JobName: JobOverdueSweep,
		Fn: func(ctx context.Context) error {
			total := 0
			err := forEachTenant(ctx, tenants, func(ctx context.Context, actor shared.Actor) error {
				resp, err := marker.MarkOverdue(ctx, actor)
				if err != nil {
					return err
				}
				total += resp.Marked
				return nil
			})
			if total > 0 {
				logger.Info("Overdue sweep finished", zap.Int("marked", total))
			}
			return err
		},
	}
}

// NewLedgerMetricsJob refreshes the unexported-entry and overdue-invoice gauges
func NewLedgerMetricsJob(collector LedgerMetricsCollector, tenants TenantProvider) Job {
	return JobFunc{
		JobName: JobLedgerMetrics,
		Fn: func(ctx context.Context) error {
			return collector.CollectLedgerMetrics(ctx, tenants)
		},
	}
}

// NewReconciliationArchiveJob uploads one reconciliation workbook per tenant
func NewReconciliationArchiveJob(archiver ReportArchiver, tenants TenantProvider, logger *zap.Logger) Job {
	return JobFunc{
		JobName: JobReconciliationArchive,
		Fn: func(ctx context.Context) error {
			return forEachTenant(ctx, tenants, func(ctx context.Context, actor shared.Actor) error {
				resp, err := archiver.Archive(ctx, actor)
				if err != nil {
					return err
				}
				fields := []zap.Field{
					zap.String("tenant_id", actor.TenantID.String()),
					zap.String("location", resp.Location),
				}
				if resp.Summary != (settlementapp.ReconciliationSummary{}) {
					logger.Warn("Reconciliation found problems", append(fields,
						zap.Int("accounts_with_drift", resp.Summary.AccountsWithDrift),
						zap.Int("payments_without_journal", resp.Summary.PaymentsWithoutJournal),
						zap.Int("unexported_entries", resp.Summary.UnexportedEntries),
					)...)
					return nil
				}
				logger.Info("Reconciliation archived", fields...)
				return nil
			})
		},
	}
}
