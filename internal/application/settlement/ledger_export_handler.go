package settlement

import (
	"context"
	"fmt"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LedgerSink delivers posted journal entries to the external ledger
type LedgerSink interface {
	Append(ctx context.Context, event *settlement.JournalEntryPostedEvent) error
}

// LedgerExportHandler forwards JournalEntryPosted events from the outbox to
// the external ledger and stamps the entry as exported once accepted.
// A failed append returns the error so the outbox retries the event; entries
// already stamped are skipped and the sink drops repeated appends.
type LedgerExportHandler struct {
	sink        LedgerSink
	journalRepo settlement.JournalRepository
	opts        options
}

// NewLedgerExportHandler creates a new LedgerExportHandler
func NewLedgerExportHandler(sink LedgerSink, journalRepo settlement.JournalRepository, opts ...Option) *LedgerExportHandler {
	return &LedgerExportHandler{
		sink:        sink,
		journalRepo: journalRepo,
		opts:        buildOptions(opts),
	}
}

// EventTypes implements shared.EventHandler
func (h *LedgerExportHandler) EventTypes() []string {
	return []string{settlement.EventJournalEntryPosted}
}

// Handle implements shared.EventHandler
func (h *LedgerExportHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	posted, ok := event.(*settlement.JournalEntryPostedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_export", "handle")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrJournalEntryID, posted.AggregateID().String(),
		"entry_number", posted.EntryNumber,
	)

	entry, err := h.journalRepo.FindByID(ctx, posted.TenantID(), posted.AggregateID())
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to load journal entry %s: %w", posted.EntryNumber, err)
	}
	if entry.ExportedAt != nil {
		h.opts.logger.Debug("journal entry already exported",
			zap.String("entry_id", posted.AggregateID().String()),
			zap.String("entry_number", posted.EntryNumber),
		)
		return nil
	}

	if err := h.sink.Append(ctx, posted); err != nil {
		telemetry.RecordError(span, err)
		h.opts.metrics.RecordLedgerExportFailure(ctx, posted.TenantID())
		h.opts.logger.Warn("ledger export failed",
			zap.String("entry_id", posted.AggregateID().String()),
			zap.String("entry_number", posted.EntryNumber),
			zap.Error(err),
		)
		return err
	}

	if err := h.journalRepo.MarkExported(ctx, posted.TenantID(), posted.AggregateID(), h.opts.now()); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to mark entry exported: %w", err)
	}

	h.opts.logger.Debug("journal entry exported",
		zap.String("entry_id", posted.AggregateID().String()),
		zap.String("entry_number", posted.EntryNumber),
	)
	return nil
}

var _ shared.EventHandler = (*LedgerExportHandler)(nil)
