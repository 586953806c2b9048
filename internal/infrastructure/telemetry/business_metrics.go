package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks settlement activity: payments recorded, degraded
// conversions, journal postings and ledger export health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	settlementTotal       *Counter
	settlementAmountTotal *Counter
	degradedTotal         *Counter
	journalEntryTotal     *Counter
	ledgerExportFailures  *Counter
	outboxDeadLetters     *Counter

	// Gauge metrics (point-in-time values)
	unexportedEntries *Gauge
	overdueInvoices   *Gauge

	ledgerProvider LedgerMetricsProvider
}

// ErrMeterNil is returned when business metrics are built without a meter
var ErrMeterNil = errors.New("NewBusinessMetrics: meter cannot be nil")

// LedgerMetricsProvider supplies ledger state for periodic gauge collection
// without the telemetry layer depending on the settlement domain.
type LedgerMetricsProvider interface {
	// GetUnexportedEntryCount returns journal entries not yet delivered to the external ledger
	GetUnexportedEntryCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetOverdueInvoiceCount returns invoices currently in overdue status
	GetOverdueInvoiceCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	LedgerProvider LedgerMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		ledgerProvider: cfg.LedgerProvider,
	}

	var err error

	bm.settlementTotal, err = NewCounter(
		cfg.Meter,
		"astra_settlement_total",
		"Total number of recorded settlements",
		"{settlements}",
	)
	if err != nil {
		return nil, err
	}

	bm.settlementAmountTotal, err = NewCounter(
		cfg.Meter,
		"astra_settlement_amount_total",
		"Total settled amount in whole base currency units",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	bm.degradedTotal, err = NewCounter(
		cfg.Meter,
		"astra_degraded_conversion_total",
		"Conversions that fell back to 1:1 because a rate was missing",
		"{conversions}",
	)
	if err != nil {
		return nil, err
	}

	bm.journalEntryTotal, err = NewCounter(
		cfg.Meter,
		"astra_journal_entry_total",
		"Total number of journal entries posted",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.ledgerExportFailures, err = NewCounter(
		cfg.Meter,
		"astra_ledger_export_failure_total",
		"Failed attempts to deliver journal entries to the external ledger",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	bm.outboxDeadLetters, err = NewCounter(
		cfg.Meter,
		"astra_outbox_dead_letter_total",
		"Outbox events moved to the dead letter queue after exhausting retries",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	bm.unexportedEntries, err = NewGauge(
		cfg.Meter,
		"astra_journal_unexported_entries",
		"Journal entries awaiting external ledger export",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.overdueInvoices, err = NewGauge(
		cfg.Meter,
		"astra_invoice_overdue_count",
		"Invoices currently overdue",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Settlement Metrics
// =============================================================================

// RecordSettlement records one settlement and its amount in base currency.
func (bm *BusinessMetrics) RecordSettlement(ctx context.Context, tenantID uuid.UUID, direction, method string, baseAmount decimal.Decimal) {
	if bm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrFlowDirection.String(direction),
		AttrPaymentMethod.String(method),
	}
	bm.settlementTotal.Inc(ctx, attrs...)
	bm.settlementAmountTotal.Add(ctx, baseAmount.Abs().IntPart(), attrs...)
}

// RecordDegradedConversion records a conversion that used a 1:1 fallback.
func (bm *BusinessMetrics) RecordDegradedConversion(ctx context.Context, tenantID uuid.UUID, currency string) {
	if bm == nil {
		return
	}
	bm.degradedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordJournalEntries records posted journal entries.
func (bm *BusinessMetrics) RecordJournalEntries(ctx context.Context, tenantID uuid.UUID, count int) {
	if bm == nil || count <= 0 {
		return
	}
	bm.journalEntryTotal.Add(ctx, int64(count), AttrTenantID.String(tenantID.String()))
}

// RecordLedgerExportFailure records a failed external ledger delivery.
func (bm *BusinessMetrics) RecordLedgerExportFailure(ctx context.Context, tenantID uuid.UUID) {
	if bm == nil {
		return
	}
	bm.ledgerExportFailures.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordOutboxDeadLetter records an outbox event that exhausted its retries.
func (bm *BusinessMetrics) RecordOutboxDeadLetter(ctx context.Context, tenantID uuid.UUID, eventType string) {
	if bm == nil {
		return
	}
	bm.outboxDeadLetters.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEventType.String(eventType),
	)
}

// RecordUnexportedEntries records the current export backlog for a tenant.
func (bm *BusinessMetrics) RecordUnexportedEntries(ctx context.Context, tenantID uuid.UUID, count int64) {
	if bm == nil {
		return
	}
	bm.unexportedEntries.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// RecordOverdueInvoices records the overdue invoice count for a tenant.
func (bm *BusinessMetrics) RecordOverdueInvoices(ctx context.Context, tenantID uuid.UUID, count int64) {
	if bm == nil {
		return
	}
	bm.overdueInvoices.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// TenantProvider lists the tenants whose gauges are collected.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CollectLedgerMetrics refreshes the unexported-entry and overdue-invoice
// gauges for every active tenant. Per-tenant failures are logged and skipped.
func (bm *BusinessMetrics) CollectLedgerMetrics(ctx context.Context, tenantProvider TenantProvider) error {
	if bm == nil || bm.ledgerProvider == nil {
		return nil
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants for metrics collection: %w", err)
	}
	for _, tenantID := range tenantIDs {
		bm.collectTenantLedgerMetrics(ctx, tenantID)
	}
	return nil
}

func (bm *BusinessMetrics) collectTenantLedgerMetrics(ctx context.Context, tenantID uuid.UUID) {
	unexported, err := bm.ledgerProvider.GetUnexportedEntryCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to count unexported journal entries",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordUnexportedEntries(ctx, tenantID, unexported)
	}

	overdue, err := bm.ledgerProvider.GetOverdueInvoiceCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to count overdue invoices",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordOverdueInvoices(ctx, tenantID, overdue)
	}
}
