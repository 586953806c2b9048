package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Invoice permissions
const (
	PermissionInvoiceCreate = "invoice:create"
	PermissionInvoiceRead   = "invoice:read"
	PermissionInvoiceUpdate = "invoice:update"
)

// overdueSweepBatch caps how many invoices one sweep flags
const overdueSweepBatch = 500

// InvoiceService manages the invoice lifecycle outside of settlement
type InvoiceService struct {
	invoiceRepo settlement.InvoiceRepository
	scope       TransactionScope
	quotes      *QuoteService
	settings    Settings
	opts        options
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo settlement.InvoiceRepository,
	scope TransactionScope,
	quotes *QuoteService,
	settings Settings,
	opts ...Option,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		scope:       scope,
		quotes:      quotes,
		settings:    settings,
		opts:        buildOptions(opts),
	}
}

// CreateInvoice opens a pending invoice
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor shared.Actor, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceNumber, req.InvoiceNumber)

	if err := actor.Require(PermissionInvoiceCreate); err != nil {
		return nil, err
	}
	inv, err := settlement.NewInvoice(actor, settlement.NewInvoiceParams{
		InvoiceNumber: req.InvoiceNumber,
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		ShipmentID:    req.ShipmentID,
		Direction:     settlement.FlowDirection(req.Direction),
		Currency:      req.Currency,
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// CreateInvoiceFromQuote prices a shipment for one region and bills the
// rounded total in the tariff currency.
func (s *InvoiceService) CreateInvoiceFromQuote(ctx context.Context, actor shared.Actor, req CreateInvoiceFromQuoteRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create_from_quote")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrRegion, req.Region)

	if err := actor.Require(PermissionInvoiceCreate); err != nil {
		return nil, err
	}
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, settlement.ErrInvalidCurrency
	}
	table, err := s.quotes.rates.GetRateTable(ctx, actor)
	if err != nil {
		return nil, err
	}
	priced, err := s.quotes.priceRegion(ctx, actor, table,
		strings.ToLower(strings.TrimSpace(req.Region)), req.Category,
		req.ProductCost, currency, req.WeightKg, req.Extras)
	if err != nil {
		return nil, err
	}
	rounded := priced.breakdown.Rounded(displayPlaces)

	inv, err := settlement.NewInvoice(actor, settlement.NewInvoiceParams{
		InvoiceNumber: req.InvoiceNumber,
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		ShipmentID:    req.ShipmentID,
		Direction:     settlement.FlowToCustomer,
		Currency:      rounded.Currency.String(),
		Amount:        rounded.Total,
		DueDate:       req.DueDate,
		Notes:         quoteNotes(req.Region, rounded),
	})
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if priced.conversion.degraded {
		s.opts.logger.Warn("invoice priced with 1:1 fallback for missing exchange rates",
			zap.String("invoice_id", inv.ID.String()),
			zap.Strings("missing_currencies", priced.conversion.missingList()),
		)
	}

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

func (s *InvoiceService) create(ctx context.Context, inv *settlement.Invoice) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.InvoiceRepo().ExistsByNumber(ctx, inv.TenantID, inv.InvoiceNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Invoice number "+inv.InvoiceNumber+" already exists")
		}
		if err := repos.InvoiceRepo().Create(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		if err := repos.Events().Record(ctx, inv.GetDomainEvents()...); err != nil {
			return err
		}
		inv.ClearDomainEvents()
		return nil
	})
}

// GetInvoice returns one invoice
func (s *InvoiceService) GetInvoice(ctx context.Context, actor shared.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	inv, err := s.invoiceRepo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// ListInvoices returns a filtered page of invoices
func (s *InvoiceService) ListInvoices(ctx context.Context, actor shared.Actor, q InvoiceListQuery) (*shared.Paginated[InvoiceResponse], error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	filter := settlement.InvoiceFilter{Filter: shared.DefaultFilter()}
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		filter.OrderDir = q.OrderDir
	}
	filter.Status = settlement.InvoiceStatus(q.Status)
	filter.Direction = settlement.FlowDirection(q.Direction)
	if q.CustomerID != "" {
		id, err := uuid.Parse(q.CustomerID)
		if err != nil {
			return nil, shared.ErrInvalidInput
		}
		filter.CustomerID = &id
	}

	invoices, total, err := s.invoiceRepo.FindAll(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i] = ToInvoiceResponse(&invoices[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// CancelInvoice cancels an invoice with no recorded payments
func (s *InvoiceService) CancelInvoice(ctx context.Context, actor shared.Actor, id uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	if err := actor.Require(PermissionInvoiceUpdate); err != nil {
		return nil, err
	}
	var inv *settlement.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := inv.Cancel(req.Reason, s.opts.now()); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, inv.GetDomainEvents()...); err != nil {
			return err
		}
		inv.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("invoice cancelled",
		zap.String("invoice_id", id.String()),
		zap.String("reason", req.Reason),
	)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// UpdateNotes replaces staff notes in any status
func (s *InvoiceService) UpdateNotes(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateNotesRequest) (*InvoiceResponse, error) {
	if err := actor.Require(PermissionInvoiceUpdate); err != nil {
		return nil, err
	}
	var inv *settlement.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		inv.UpdateNotes(req.Notes, s.opts.now())
		return repos.InvoiceRepo().SaveWithLock(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// MarkOverdue flags pending invoices whose due date has passed
func (s *InvoiceService) MarkOverdue(ctx context.Context, actor shared.Actor) (*OverdueSweepResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "overdue_sweep")
	defer span.End()

	if err := actor.Require(PermissionInvoiceUpdate); err != nil {
		return nil, err
	}
	now := s.opts.now()
	resp := &OverdueSweepResponse{InvoiceIDs: []uuid.UUID{}}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		candidates, err := repos.InvoiceRepo().FindOverdueCandidates(ctx, actor.TenantID, now, overdueSweepBatch)
		if err != nil {
			return err
		}
		for _, inv := range candidates {
			if !inv.MarkOverdue(now) {
				continue
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			if err := repos.Events().Record(ctx, inv.GetDomainEvents()...); err != nil {
				return err
			}
			inv.ClearDomainEvents()
			resp.InvoiceIDs = append(resp.InvoiceIDs, inv.ID)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp.Marked = len(resp.InvoiceIDs)

	if resp.Marked > 0 {
		s.opts.logger.Info("overdue sweep flagged invoices",
			zap.String("tenant_id", actor.TenantID.String()),
			zap.Int("marked", resp.Marked),
		)
	}
	return resp, nil
}

func quoteNotes(region string, b settlement.Breakdown) string {
	var sb strings.Builder
	sb.WriteString("Quoted for region " + strings.ToLower(strings.TrimSpace(region)) + ":")
	for _, l := range b.Lines {
		fmt.Fprintf(&sb, "\n%s: %s %s", l.Label, l.Amount.StringFixed(displayPlaces), b.Currency)
	}
	return sb.String()
}
