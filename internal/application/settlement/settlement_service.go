package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// storedPlaces matches the numeric(18,4) money columns
const storedPlaces = 4

// Permissions checked by the settlement services
const (
	PermissionPaymentRecord = "payment:record"
	PermissionPaymentVerify = "payment:verify"
)

// SettlementService records payments against invoices. Every settlement runs
// in a single transaction covering the invoice, its payment legs, bank
// balances, journal entries and outbox events.
type SettlementService struct {
	scope       TransactionScope
	paymentRepo settlement.PaymentRepository
	idempotency shared.IdempotencyStore
	settings    Settings
	opts        options
}

// NewSettlementService creates a new SettlementService.
// idempotency may be nil, in which case Idempotency-Key headers are ignored.
func NewSettlementService(
	scope TransactionScope,
	paymentRepo settlement.PaymentRepository,
	idempotency shared.IdempotencyStore,
	settings Settings,
	opts ...Option,
) *SettlementService {
	return &SettlementService{
		scope:       scope,
		paymentRepo: paymentRepo,
		idempotency: idempotency,
		settings:    settings,
		opts:        buildOptions(opts),
	}
}

// RecordPayment applies a payment to an invoice
func (s *SettlementService) RecordPayment(
	ctx context.Context,
	actor shared.Actor,
	invoiceID uuid.UUID,
	req RecordPaymentRequest,
) (*SettlementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrLegs, len(req.Splits),
	)

	if err := actor.Require(PermissionPaymentRecord); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	method := settlement.PaymentMethod(req.Method)
	if !method.IsValid() {
		return nil, settlement.ErrInvalidMethod
	}
	splits, err := buildSplits(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := s.claimIdempotencyKey(ctx, actor, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *SettlementResponse
	var baseAmount decimal.Decimal
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txErr error
		result, baseAmount, txErr = s.settle(ctx, repos, actor, invoiceID, method, req, splits)
		return txErr
	})
	if err != nil {
		release()
		telemetry.RecordError(span, err)
		s.opts.logger.Error("settlement failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("tenant_id", actor.TenantID.String()),
			zap.String("request_id", actor.RequestID),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSettlementID, result.SettlementID.String(),
		telemetry.SpanAttrDegraded, result.Conversion.Degraded,
	)
	if result.Conversion.Degraded {
		s.opts.logger.Warn("settlement used 1:1 fallback for missing exchange rates",
			zap.String("settlement_id", result.SettlementID.String()),
			zap.String("invoice_id", invoiceID.String()),
			zap.Strings("missing_currencies", result.Conversion.MissingCurrencies),
		)
		for _, c := range result.Conversion.MissingCurrencies {
			s.opts.metrics.RecordDegradedConversion(ctx, actor.TenantID, c)
		}
	}
	s.opts.metrics.RecordSettlement(ctx, actor.TenantID, result.Invoice.Direction, req.Method, baseAmount)
	s.opts.metrics.RecordJournalEntries(ctx, actor.TenantID, len(result.JournalEntryIDs))

	s.opts.logger.Info("settlement recorded",
		zap.String("settlement_id", result.SettlementID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("legs", len(result.Payments)),
		zap.Bool("fully_paid", result.FullyPaid),
	)
	return result, nil
}

func (s *SettlementService) settle(
	ctx context.Context,
	repos TransactionalRepositories,
	actor shared.Actor,
	invoiceID uuid.UUID,
	method settlement.PaymentMethod,
	req RecordPaymentRequest,
	splits []settlement.PaymentSplit,
) (*SettlementResponse, decimal.Decimal, error) {
	now := s.opts.now()

	invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, invoiceID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != invoice.Version {
		return nil, decimal.Zero, shared.ErrConcurrencyConflict
	}
	if !invoice.Status.CanApplyPayment() {
		return nil, decimal.Zero, settlement.ErrInvoiceNotPayable
	}

	payCurrency := invoice.Currency
	if req.Currency != "" {
		if payCurrency, err = valueobject.ParseCurrency(req.Currency); err != nil {
			return nil, decimal.Zero, settlement.ErrInvalidCurrency
		}
	}

	table, err := loadRateTable(ctx, repos.ExchangeRateRepo(), actor.TenantID, s.settings.BaseCurrency)
	if err != nil {
		return nil, decimal.Zero, err
	}

	accounts, err := repos.BankAccountRepo().FindByIDsForUpdate(ctx, actor.TenantID, splitAccountIDs(splits))
	if err != nil {
		return nil, decimal.Zero, err
	}
	for _, sp := range splits {
		if _, ok := accounts[sp.BankAccountID]; !ok {
			return nil, decimal.Zero, shared.NewDomainError("NOT_FOUND", "Bank account "+sp.BankAccountID.String()+" not found")
		}
	}

	toInvoice := settlement.ConvertBetween(req.Amount, payCurrency, invoice.Currency, table)
	tracker := newDegradedTracker(toInvoice)

	alloc := settlement.Allocate(invoice, toInvoice.Amount.Round(storedPlaces), splits)
	if err := invoice.ApplyAllocation(alloc, now); err != nil {
		return nil, decimal.Zero, err
	}

	settlementID := uuid.New()
	payments := make([]*settlement.Payment, 0, len(alloc.Legs))
	postings := make(map[uuid.UUID]settlement.LegPosting, len(alloc.Legs))
	baseTotal := decimal.Zero
	// leg invoice amounts are rounded on the running total so that they add
	// up to exactly what the invoice was credited
	invoiceExact := decimal.Zero
	invoiceAssigned := decimal.Zero

	for i, leg := range alloc.Legs {
		account := accounts[leg.BankAccountID]

		toAccount := settlement.ConvertBetween(leg.Amount, payCurrency, account.Currency, table)
		toBase := settlement.Convert(leg.Amount, payCurrency, table)
		legInvoice := settlement.ConvertBetween(leg.Amount, payCurrency, invoice.Currency, table)
		tracker.add(toAccount, toBase, legInvoice)

		accountAmount := toAccount.Amount.Round(storedPlaces)
		baseAmount := settlement.RoundBaseTotal(toBase.Amount, s.settings.BaseRoundingPlaces)
		baseTotal = baseTotal.Add(baseAmount)

		invoiceExact = invoiceExact.Add(legInvoice.Amount)
		legInvoiceAmount := invoiceExact.Round(storedPlaces).Sub(invoiceAssigned)
		if i == len(alloc.Legs)-1 {
			legInvoiceAmount = alloc.PaymentAmount.Sub(invoiceAssigned)
		}
		invoiceAssigned = invoiceAssigned.Add(legInvoiceAmount)

		payment, err := settlement.NewPayment(actor, settlement.NewPaymentParams{
			SettlementID:    settlementID,
			InvoiceID:       invoice.ID,
			BankAccountID:   account.ID,
			Direction:       invoice.Direction,
			Method:          method,
			Reference:       req.Reference,
			Currency:        payCurrency,
			Amount:          leg.Amount,
			InvoiceAmount:   legInvoiceAmount,
			AccountCurrency: account.Currency,
			AccountAmount:   accountAmount,
			Degraded:        toAccount.Degraded || legInvoice.Degraded,
		})
		if err != nil {
			return nil, decimal.Zero, err
		}
		account.ApplyDelta(payment.BalanceDelta(), now)

		payments = append(payments, payment)
		postings[account.ID] = settlement.LegPosting{
			PaymentID:         payment.ID,
			LedgerAccountCode: account.LedgerAccountCode,
			Currency:          account.Currency,
			Amount:            accountAmount,
			BaseAmount:        baseAmount,
		}
	}

	postedBy := actor.UserID
	entries, err := settlement.Post(alloc, settlement.PostingContext{
		TenantID:     actor.TenantID,
		SettlementID: settlementID,
		Reference:    req.Reference,
		Accounts:     s.settings.Accounts,
		Legs:         postings,
		PostedBy:     &postedBy,
		PostedAt:     now,
	})
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to post journal entries: %w", err)
	}
	for i, entry := range entries {
		payments[i].AttachJournalEntry(entry.ID)
	}

	if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
		return nil, decimal.Zero, err
	}
	if err := repos.PaymentRepo().Create(ctx, payments...); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to save payments: %w", err)
	}
	for _, sp := range splits {
		if err := repos.BankAccountRepo().SaveWithLock(ctx, accounts[sp.BankAccountID]); err != nil {
			return nil, decimal.Zero, err
		}
	}
	if err := repos.JournalRepo().Create(ctx, entries...); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to save journal entries: %w", err)
	}

	events := make([]shared.DomainEvent, 0, len(payments)+len(entries)+2)
	events = append(events, invoice.GetDomainEvents()...)
	for _, p := range payments {
		events = append(events, p.GetDomainEvents()...)
	}
	for _, e := range entries {
		events = append(events, settlement.NewJournalEntryPostedEvent(e))
	}
	if err := repos.Events().Record(ctx, events...); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to record events: %w", err)
	}
	invoice.ClearDomainEvents()
	for _, p := range payments {
		p.ClearDomainEvents()
	}

	resp := &SettlementResponse{
		SettlementID:    settlementID,
		Invoice:         ToInvoiceResponse(invoice),
		Payments:        make([]PaymentResponse, len(payments)),
		JournalEntryIDs: make([]uuid.UUID, len(entries)),
		PaymentAmount:   req.Amount,
		InvoiceAmount:   alloc.PaymentAmount,
		FullyPaid:       alloc.IsFullyPaid,
		Conversion: ConversionResponse{
			From:              payCurrency.String(),
			To:                invoice.Currency.String(),
			Rate:              toInvoice.Rate,
			Degraded:          tracker.degraded,
			MissingCurrencies: tracker.missingList(),
		},
	}
	for i, p := range payments {
		resp.Payments[i] = ToPaymentResponse(p)
	}
	for i, e := range entries {
		resp.JournalEntryIDs[i] = e.ID
	}
	return resp, baseTotal, nil
}

// VerifyPayment confirms a pending payment leg
func (s *SettlementService) VerifyPayment(ctx context.Context, actor shared.Actor, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "verify_payment")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	if err := actor.Require(PermissionPaymentVerify); err != nil {
		return nil, err
	}

	var payment *settlement.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payment, err = repos.PaymentRepo().FindByID(ctx, actor.TenantID, paymentID)
		if err != nil {
			return err
		}
		if err := payment.Verify(actor, s.opts.now()); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, payment.GetDomainEvents()...); err != nil {
			return err
		}
		payment.ClearDomainEvents()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.opts.logger.Info("payment verified",
		zap.String("payment_id", paymentID.String()),
		zap.String("verified_by", actor.UserID.String()),
	)
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// RejectPayment rejects a payment leg and reverses its effects: the invoice
// paid amount, the bank balance and the journal entry.
func (s *SettlementService) RejectPayment(
	ctx context.Context,
	actor shared.Actor,
	paymentID uuid.UUID,
	req RejectPaymentRequest,
) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "reject_payment")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	if err := actor.Require(PermissionPaymentVerify); err != nil {
		return nil, err
	}

	var payment *settlement.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.opts.now()
		var err error
		payment, err = repos.PaymentRepo().FindByID(ctx, actor.TenantID, paymentID)
		if err != nil {
			return err
		}
		invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, payment.InvoiceID)
		if err != nil {
			return err
		}
		accounts, err := repos.BankAccountRepo().FindByIDsForUpdate(ctx, actor.TenantID, []uuid.UUID{payment.BankAccountID})
		if err != nil {
			return err
		}
		account, ok := accounts[payment.BankAccountID]
		if !ok {
			return shared.ErrNotFound
		}

		if err := payment.Reject(actor, req.Reason, now); err != nil {
			return err
		}
		if err := invoice.ReversePayment(payment.InvoiceAmount, now); err != nil {
			return err
		}
		account.ApplyDelta(payment.BalanceDelta().Neg(), now)

		var reversal *settlement.JournalEntry
		if payment.JournalEntryID != nil {
			original, err := repos.JournalRepo().FindByID(ctx, actor.TenantID, *payment.JournalEntryID)
			if err != nil {
				return fmt.Errorf("failed to load journal entry: %w", err)
			}
			postedBy := actor.UserID
			reversal, err = settlement.Reverse(original, &postedBy, now, req.Reason)
			if err != nil {
				return err
			}
		}

		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
			return err
		}
		if err := repos.BankAccountRepo().SaveWithLock(ctx, account); err != nil {
			return err
		}
		events := make([]shared.DomainEvent, 0, 4)
		events = append(events, payment.GetDomainEvents()...)
		events = append(events, invoice.GetDomainEvents()...)
		if reversal != nil {
			if err := repos.JournalRepo().Create(ctx, reversal); err != nil {
				return fmt.Errorf("failed to save reversal entry: %w", err)
			}
			events = append(events, settlement.NewJournalEntryPostedEvent(reversal))
		}
		if err := repos.Events().Record(ctx, events...); err != nil {
			return err
		}
		payment.ClearDomainEvents()
		invoice.ClearDomainEvents()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.opts.logger.Info("payment rejected and reversed",
		zap.String("payment_id", paymentID.String()),
		zap.String("invoice_id", payment.InvoiceID.String()),
		zap.String("reason", req.Reason),
	)
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// ListPayments returns every payment leg recorded against an invoice
func (s *SettlementService) ListPayments(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByInvoice(ctx, actor.TenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out, nil
}

// claimIdempotencyKey marks the key as in use and returns a func that frees it
func (s *SettlementService) claimIdempotencyKey(ctx context.Context, actor shared.Actor, key string) (func(), error) {
	if key == "" || s.idempotency == nil {
		return func() {}, nil
	}
	scoped := fmt.Sprintf("settlement:%s:%s", actor.TenantID, key)
	fresh, err := s.idempotency.MarkProcessed(ctx, scoped, s.settings.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !fresh {
		return nil, shared.ErrDuplicateRequest
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), scoped); err != nil {
			s.opts.logger.Warn("failed to release idempotency key", zap.String("key", scoped), zap.Error(err))
		}
	}, nil
}

// buildSplits turns the request into validated splits; without explicit splits
// the whole amount goes to the single bank account.
func buildSplits(req RecordPaymentRequest) ([]settlement.PaymentSplit, error) {
	if !req.Amount.IsPositive() {
		return nil, settlement.ErrNonPositivePayment
	}
	var splits []settlement.PaymentSplit
	if len(req.Splits) == 0 {
		if req.BankAccountID == nil {
			return nil, settlement.ErrInvalidSplit
		}
		splits = []settlement.PaymentSplit{{BankAccountID: *req.BankAccountID, Amount: req.Amount}}
	} else {
		splits = make([]settlement.PaymentSplit, len(req.Splits))
		for i, sp := range req.Splits {
			splits[i] = settlement.PaymentSplit{BankAccountID: sp.BankAccountID, Amount: sp.Amount}
		}
	}
	if err := settlement.ValidateSplits(req.Amount, splits); err != nil {
		return nil, err
	}
	return splits, nil
}

func splitAccountIDs(splits []settlement.PaymentSplit) []uuid.UUID {
	ids := make([]uuid.UUID, len(splits))
	for i, sp := range splits {
		ids[i] = sp.BankAccountID
	}
	return ids
}

func loadRateTable(ctx context.Context, repo settlement.ExchangeRateRepository, tenantID uuid.UUID, base valueobject.Currency) (settlement.RateTable, error) {
	rows, err := repo.FindAll(ctx, tenantID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return settlement.RateTable{}, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	return settlement.RateTableFromSnapshot(base, rows)
}

// degradedTracker collects missing currencies across all conversions of a settlement
type degradedTracker struct {
	degraded bool
	missing  map[valueobject.Currency]struct{}
	order    []valueobject.Currency
}

func newDegradedTracker(conversions ...settlement.Conversion) *degradedTracker {
	t := &degradedTracker{missing: make(map[valueobject.Currency]struct{})}
	t.add(conversions...)
	return t
}

func (t *degradedTracker) add(conversions ...settlement.Conversion) {
	for _, c := range conversions {
		if !c.Degraded {
			continue
		}
		t.degraded = true
		for _, m := range c.MissingCurrencies {
			if _, seen := t.missing[m]; !seen {
				t.missing[m] = struct{}{}
				t.order = append(t.order, m)
			}
		}
	}
}

func (t *degradedTracker) missingList() []string {
	out := make([]string, len(t.order))
	for i, c := range t.order {
		out[i] = c.String()
	}
	return out
}
