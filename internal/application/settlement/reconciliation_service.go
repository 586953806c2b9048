package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Reconciliation permissions
const (
	PermissionReconciliationRead = "reconciliation:read"
	PermissionReconciliationRun  = "reconciliation:run"
)

// unexportedReportLimit caps the unexported entries listed in one report
const unexportedReportLimit = 500

// XLSXContentType is the MIME type of rendered reports
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportRenderer renders a reconciliation report as a spreadsheet
type ReportRenderer interface {
	Render(report *ReconciliationReport) ([]byte, error)
}

// ReportStore archives rendered reports in object storage
type ReportStore interface {
	// Put stores the object and returns its location
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// AccountReconciliation compares one account's running balance with its ledger
type AccountReconciliation struct {
	BankAccountID     uuid.UUID       `json:"bank_account_id"`
	Name              string          `json:"name"`
	LedgerAccountCode string          `json:"ledger_account_code"`
	Currency          string          `json:"currency"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	RunningBalance    decimal.Decimal `json:"running_balance"`
	LedgerBalance     decimal.Decimal `json:"ledger_balance"`
	Drift             decimal.Decimal `json:"drift"`
	HasDrift          bool            `json:"has_drift"`
	LastReconciledAt  *time.Time      `json:"last_reconciled_at,omitempty"`
}

// UnexportedEntry is a journal entry the external ledger has not acknowledged
type UnexportedEntry struct {
	ID          uuid.UUID       `json:"id"`
	EntryNumber string          `json:"entry_number"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	PaymentID   *uuid.UUID      `json:"payment_id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PostedAt    time.Time       `json:"posted_at"`
}

// ReconciliationSummary counts the problems found
type ReconciliationSummary struct {
	AccountsWithDrift      int `json:"accounts_with_drift"`
	PaymentsWithoutJournal int `json:"payments_without_journal"`
	UnexportedEntries      int `json:"unexported_entries"`
}

// ReconciliationReport lists every inconsistency between balances, payments
// and the ledger for one tenant.
type ReconciliationReport struct {
	TenantID               uuid.UUID               `json:"tenant_id"`
	GeneratedAt            time.Time               `json:"generated_at"`
	Accounts               []AccountReconciliation `json:"accounts"`
	PaymentsWithoutJournal []PaymentResponse       `json:"payments_without_journal"`
	UnexportedEntries      []UnexportedEntry       `json:"unexported_entries"`
	Summary                ReconciliationSummary   `json:"summary"`
}

// Clean reports whether nothing needs attention
func (r *ReconciliationReport) Clean() bool {
	return r.Summary == ReconciliationSummary{}
}

// RecalculationResponse is the outcome of rebuilding one balance
type RecalculationResponse struct {
	BankAccountID       uuid.UUID       `json:"bank_account_id"`
	PreviousBalance     decimal.Decimal `json:"previous_balance"`
	RecalculatedBalance decimal.Decimal `json:"recalculated_balance"`
	Drift               decimal.Decimal `json:"drift"`
	HasDrift            bool            `json:"has_drift"`
	ReconciledAt        time.Time       `json:"reconciled_at"`
}

// ArchiveResponse points at an archived report
type ArchiveResponse struct {
	Key      string                `json:"key"`
	Location string                `json:"location"`
	Summary  ReconciliationSummary `json:"summary"`
}

// ReconciliationService rebuilds balances from the ledger and reports drift
type ReconciliationService struct {
	scope       TransactionScope
	bankRepo    settlement.BankAccountRepository
	paymentRepo settlement.PaymentRepository
	journalRepo settlement.JournalRepository
	renderer    ReportRenderer
	store       ReportStore
	settings    Settings
	opts        options
}

// NewReconciliationService creates a new ReconciliationService.
// renderer and store may be nil when XLSX export or archiving is not needed.
func NewReconciliationService(
	scope TransactionScope,
	bankRepo settlement.BankAccountRepository,
	paymentRepo settlement.PaymentRepository,
	journalRepo settlement.JournalRepository,
	renderer ReportRenderer,
	store ReportStore,
	settings Settings,
	opts ...Option,
) *ReconciliationService {
	return &ReconciliationService{
		scope:       scope,
		bankRepo:    bankRepo,
		paymentRepo: paymentRepo,
		journalRepo: journalRepo,
		renderer:    renderer,
		store:       store,
		settings:    settings,
		opts:        buildOptions(opts),
	}
}

// Recalculate replaces an account's running balance with opening balance
// plus the net of its ledger lines and reports the drift that was corrected.
func (s *ReconciliationService) Recalculate(ctx context.Context, actor shared.Actor, bankAccountID uuid.UUID) (*RecalculationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "recalculate")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrBankAccountID, bankAccountID.String())

	if err := actor.Require(PermissionReconciliationRun); err != nil {
		return nil, err
	}

	now := s.opts.now()
	var result settlement.Recalculation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts, err := repos.BankAccountRepo().FindByIDsForUpdate(ctx, actor.TenantID, []uuid.UUID{bankAccountID})
		if err != nil {
			return err
		}
		account, ok := accounts[bankAccountID]
		if !ok {
			return shared.ErrNotFound
		}
		totals, err := repos.JournalRepo().SumByAccount(ctx, actor.TenantID, account.LedgerAccountCode)
		if err != nil {
			return fmt.Errorf("failed to sum ledger lines: %w", err)
		}
		result = account.Recalculate(totals, now)
		return repos.BankAccountRepo().SaveWithLock(ctx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if result.HasDrift() {
		s.opts.logger.Warn("bank balance drift corrected",
			zap.String("bank_account_id", bankAccountID.String()),
			zap.String("previous_balance", result.PreviousBalance.String()),
			zap.String("recalculated_balance", result.RecalculatedBalance.String()),
			zap.String("drift", result.Drift.String()),
		)
	}
	return &RecalculationResponse{
		BankAccountID:       bankAccountID,
		PreviousBalance:     result.PreviousBalance,
		RecalculatedBalance: result.RecalculatedBalance,
		Drift:               result.Drift,
		HasDrift:            result.HasDrift(),
		ReconciledAt:        now,
	}, nil
}

// Report builds the reconciliation report without changing any balance
func (s *ReconciliationService) Report(ctx context.Context, actor shared.Actor) (*ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "report")
	defer span.End()

	if err := actor.Require(PermissionReconciliationRead); err != nil {
		return nil, err
	}

	now := s.opts.now()
	report := &ReconciliationReport{
		TenantID:               actor.TenantID,
		GeneratedAt:            now,
		Accounts:               []AccountReconciliation{},
		PaymentsWithoutJournal: []PaymentResponse{},
		UnexportedEntries:      []UnexportedEntry{},
	}

	accounts, err := s.bankRepo.FindAll(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		totals, err := s.journalRepo.SumByAccount(ctx, actor.TenantID, account.LedgerAccountCode)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to sum ledger lines for %s: %w", account.LedgerAccountCode, err)
		}
		ledger := account.OpeningBalance.Add(totals.Net())
		drift := account.Balance.Sub(ledger)
		report.Accounts = append(report.Accounts, AccountReconciliation{
			BankAccountID:     account.ID,
			Name:              account.Name,
			LedgerAccountCode: account.LedgerAccountCode,
			Currency:          account.Currency.String(),
			OpeningBalance:    account.OpeningBalance,
			RunningBalance:    account.Balance,
			LedgerBalance:     ledger,
			Drift:             drift,
			HasDrift:          !drift.IsZero(),
			LastReconciledAt:  account.LastReconciledAt,
		})
		if !drift.IsZero() {
			report.Summary.AccountsWithDrift++
		}
	}

	payments, err := s.paymentRepo.FindWithoutJournal(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		report.PaymentsWithoutJournal = append(report.PaymentsWithoutJournal, ToPaymentResponse(&payments[i]))
	}
	report.Summary.PaymentsWithoutJournal = len(payments)

	entries, err := s.journalRepo.FindUnexported(ctx, actor.TenantID, now.Add(-s.settings.LedgerExportGrace), unexportedReportLimit)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		report.UnexportedEntries = append(report.UnexportedEntries, UnexportedEntry{
			ID:          e.ID,
			EntryNumber: e.EntryNumber,
			InvoiceID:   e.InvoiceID,
			PaymentID:   e.PaymentID,
			Description: e.Description,
			Amount:      e.TotalDebit(),
			PostedAt:    e.PostedAt,
		})
	}
	report.Summary.UnexportedEntries = len(entries)

	telemetry.SetAttributes(span,
		"accounts_with_drift", report.Summary.AccountsWithDrift,
		"payments_without_journal", report.Summary.PaymentsWithoutJournal,
		"unexported_entries", report.Summary.UnexportedEntries,
	)
	if !report.Clean() {
		s.opts.logger.Warn("reconciliation found inconsistencies",
			zap.String("tenant_id", actor.TenantID.String()),
			zap.Int("accounts_with_drift", report.Summary.AccountsWithDrift),
			zap.Int("payments_without_journal", report.Summary.PaymentsWithoutJournal),
			zap.Int("unexported_entries", report.Summary.UnexportedEntries),
		)
	}
	return report, nil
}

// ExportXLSX renders the current report as a workbook
func (s *ReconciliationService) ExportXLSX(ctx context.Context, actor shared.Actor) ([]byte, *ReconciliationReport, error) {
	if s.renderer == nil {
		return nil, nil, shared.NewDomainError("NOT_CONFIGURED", "Report export is not configured")
	}
	report, err := s.Report(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.renderer.Render(report)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render report: %w", err)
	}
	return body, report, nil
}

// Archive renders the report and uploads it to object storage
func (s *ReconciliationService) Archive(ctx context.Context, actor shared.Actor) (*ArchiveResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "archive")
	defer span.End()

	if err := actor.Require(PermissionReconciliationRun); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, shared.NewDomainError("NOT_CONFIGURED", "Report storage is not configured")
	}
	body, report, err := s.ExportXLSX(ctx, actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	key := ReportKey(actor.TenantID, report.GeneratedAt)
	location, err := s.store.Put(ctx, key, body, XLSXContentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to archive report: %w", err)
	}

	s.opts.logger.Info("reconciliation report archived",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return &ArchiveResponse{Key: key, Location: location, Summary: report.Summary}, nil
}

// ReportKey is the object key of an archived report
func ReportKey(tenantID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("reconciliation/%s/%s.xlsx", tenantID, at.UTC().Format("20060102T150405Z"))
}
