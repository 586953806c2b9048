package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReportRenderer is a mock implementation of ReportRenderer
type MockReportRenderer struct {
	mock.Mock
}

func (m *MockReportRenderer) Render(report *ReconciliationReport) ([]byte, error) {
	args := m.Called(report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockReportStore is a mock implementation of ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, body, contentType)
	return args.String(0), args.Error(1)
}

type reconciliationFixture struct {
	*settlementFixture
	renderer *MockReportRenderer
	reports  *MockReportStore
	recon    *ReconciliationService
}

func newReconciliationFixture(t *testing.T) *reconciliationFixture {
	t.Helper()
	f := &reconciliationFixture{
		settlementFixture: newSettlementFixture(t),
		renderer:          new(MockReportRenderer),
		reports:           new(MockReportStore),
	}
	later := func() time.Time { return testNow.Add(time.Hour) }
	f.recon = NewReconciliationService(
		f.store.scope(),
		&memBankAccountRepo{f.store},
		&memPaymentRepo{f.store},
		&memJournalRepo{f.store},
		f.renderer,
		f.reports,
		DefaultSettings(),
		WithClock(later),
	)
	return f
}

func TestReconciliationService_Report_Clean(t *testing.T) {
	f := newReconciliationFixture(t)
	inv := seedInvoice(t, f.store, f.actor, "INV-4001", "USD", "100", settlement.FlowToCustomer)
	resp, err := f.svc.RecordPayment(context.Background(), f.actor, inv.ID, singleLeg("100", f.usdBank.ID))
	require.NoError(t, err)
	require.NoError(t, (&memJournalRepo{f.store}).MarkExported(context.Background(), f.actor.TenantID, resp.JournalEntryIDs[0], testNow))

	report, err := f.recon.Report(context.Background(), f.actor)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Len(t, report.Accounts, 2)
	for _, a := range report.Accounts {
		assert.False(t, a.HasDrift)
	}
}

func TestReconciliationService_Report_FindsProblems(t *testing.T) {
	f := newReconciliationFixture(t)
	inv := seedInvoice(t, f.store, f.actor, "INV-4002", "USD", "100", settlement.FlowToCustomer)
	_, err := f.svc.RecordPayment(context.Background(), f.actor, inv.ID, singleLeg("100", f.usdBank.ID))
	require.NoError(t, err)

	// drift the running balance behind the ledger's back
	bank := f.store.account(f.usdBank.ID)
	bank.Balance = bank.Balance.Add(d("5"))
	f.store.accounts[bank.ID] = bank

	// a payment that never got a journal entry
	orphan, err := settlement.NewPayment(f.actor, settlement.NewPaymentParams{
		SettlementID:    uuid.New(),
		InvoiceID:       inv.ID,
		BankAccountID:   f.tzsBank.ID,
		Direction:       settlement.FlowToCustomer,
		Method:          settlement.PaymentMethodCash,
		Currency:        "TZS",
		Amount:          d("1000"),
		InvoiceAmount:   d("0.4"),
		AccountCurrency: "TZS",
		AccountAmount:   d("1000"),
	})
	require.NoError(t, err)
	require.NoError(t, (&memPaymentRepo{f.store}).Create(context.Background(), orphan))

	report, err := f.recon.Report(context.Background(), f.actor)
	require.NoError(t, err)

	assert.False(t, report.Clean())
	assert.Equal(t, 1, report.Summary.AccountsWithDrift)
	assert.Equal(t, 1, report.Summary.PaymentsWithoutJournal)
	assert.Equal(t, 1, report.Summary.UnexportedEntries)
	assert.Equal(t, orphan.ID, report.PaymentsWithoutJournal[0].ID)
	assert.True(t, report.UnexportedEntries[0].Amount.Equal(d("100")))

	for _, a := range report.Accounts {
		if a.BankAccountID == f.usdBank.ID {
			assert.True(t, a.Drift.Equal(d("5")))
			assert.True(t, a.LedgerBalance.Equal(d("100")))
		}
	}
}

func TestReconciliationService_Report_GracePeriod(t *testing.T) {
	f := newReconciliationFixture(t)
	f.recon.opts.now = fixedClock()
	inv := seedInvoice(t, f.store, f.actor, "INV-4003", "USD", "100", settlement.FlowToCustomer)
	_, err := f.svc.RecordPayment(context.Background(), f.actor, inv.ID, singleLeg("100", f.usdBank.ID))
	require.NoError(t, err)

	report, err := f.recon.Report(context.Background(), f.actor)
	require.NoError(t, err)
	assert.Zero(t, report.Summary.UnexportedEntries)
}

func TestReconciliationService_Recalculate(t *testing.T) {
	f := newReconciliationFixture(t)
	inv := seedInvoice(t, f.store, f.actor, "INV-4004", "USD", "100", settlement.FlowToCustomer)
	_, err := f.svc.RecordPayment(context.Background(), f.actor, inv.ID, singleLeg("60", f.usdBank.ID))
	require.NoError(t, err)

	bank := f.store.account(f.usdBank.ID)
	bank.Balance = d("55")
	f.store.accounts[bank.ID] = bank

	resp, err := f.recon.Recalculate(context.Background(), f.actor, f.usdBank.ID)
	require.NoError(t, err)
	assert.True(t, resp.HasDrift)
	assert.True(t, resp.PreviousBalance.Equal(d("55")))
	assert.True(t, resp.RecalculatedBalance.Equal(d("60")))

	stored := f.store.account(f.usdBank.ID)
	assert.True(t, stored.Balance.Equal(d("60")))
	require.NotNil(t, stored.LastReconciledAt)

	resp, err = f.recon.Recalculate(context.Background(), f.actor, f.usdBank.ID)
	require.NoError(t, err)
	assert.False(t, resp.HasDrift)

	_, err = f.recon.Recalculate(context.Background(), f.actor, uuid.New())
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestReconciliationService_Archive(t *testing.T) {
	f := newReconciliationFixture(t)
	body := []byte("PK-xlsx")
	f.renderer.On("Render", mock.AnythingOfType("*settlement.ReconciliationReport")).Return(body, nil).Once()
	key := ReportKey(f.actor.TenantID, testNow.Add(time.Hour))
	f.reports.On("Put", mock.Anything, key, body, XLSXContentType).Return("s3://astraline-reports/"+key, nil).Once()

	resp, err := f.recon.Archive(context.Background(), f.actor)
	require.NoError(t, err)
	assert.Equal(t, key, resp.Key)
	assert.Contains(t, resp.Location, "s3://")
	assert.Equal(t, "reconciliation/"+f.actor.TenantID.String()+"/20260314T103000Z.xlsx", key)
	f.renderer.AssertExpectations(t)
	f.reports.AssertExpectations(t)
}

func TestReconciliationService_Archive_Failures(t *testing.T) {
	f := newReconciliationFixture(t)
	f.renderer.On("Render", mock.Anything).Return(nil, errors.New("disk full")).Once()

	_, err := f.recon.Archive(context.Background(), f.actor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	f.reports.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	bare := NewReconciliationService(f.store.scope(), &memBankAccountRepo{f.store}, &memPaymentRepo{f.store}, &memJournalRepo{f.store}, nil, nil, DefaultSettings())
	_, err = bare.Archive(context.Background(), f.actor)
	assertDomainCode(t, err, "NOT_CONFIGURED")
	_, _, err = bare.ExportXLSX(context.Background(), f.actor)
	assertDomainCode(t, err, "NOT_CONFIGURED")
}
