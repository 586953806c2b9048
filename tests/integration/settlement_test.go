//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/cache"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/event"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/persistence"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlementStack struct {
	db             *TestDB
	actor          shared.Actor
	invoices       *settlementapp.InvoiceService
	settlements    *settlementapp.SettlementService
	rates          *settlementapp.RateService
	accounts       *settlementapp.BankAccountService
	reconciliation *settlementapp.ReconciliationService
	journal        *persistence.GormJournalRepository
}

func newSettlementStack(t *testing.T, idem shared.IdempotencyStore) *settlementStack {
	t.Helper()
	db := NewTestDB(t)
	settings := settlementapp.DefaultSettings()

	serializer := event.NewEventSerializer()
	event.RegisterSettlementEvents(serializer)
	scope := persistence.NewGormSettlementTransactionScope(db.DB, event.NewOutboxPublisher(serializer, 5))

	bankRepo := persistence.NewGormBankAccountRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	journalRepo := persistence.NewGormJournalRepository(db.DB)
	chargeRepo := persistence.NewGormChargeRateRepository(db.DB)
	rates := settlementapp.NewRateService(persistence.NewGormExchangeRateRepository(db.DB), chargeRepo, nil, settings)
	quotes := settlementapp.NewQuoteService(chargeRepo, rates, settings)

	return &settlementStack{
		db: db,
		actor: shared.Actor{
			UserID:      uuid.New(),
			TenantID:    uuid.New(),
			Username:    "cashier",
			Permissions: []string{shared.WildcardPermission},
		},
		invoices:       settlementapp.NewInvoiceService(persistence.NewGormInvoiceRepository(db.DB), scope, quotes, settings),
		settlements:    settlementapp.NewSettlementService(scope, paymentRepo, idem, settings),
		rates:          rates,
		accounts:       settlementapp.NewBankAccountService(bankRepo, settings),
		reconciliation: settlementapp.NewReconciliationService(scope, bankRepo, paymentRepo, journalRepo, nil, nil, settings),
		journal:        journalRepo,
	}
}

func (s *settlementStack) seed(t *testing.T) (usd, tzs *settlementapp.BankAccountResponse) {
	t.Helper()
	ctx := context.Background()

	_, err := s.rates.UpsertRates(ctx, s.actor, settlementapp.UpsertRatesRequest{
		Rates: []settlementapp.RateEntry{{Currency: "USD", RateToBase: decimal.RequireFromString("2500")}},
	})
	require.NoError(t, err)

	usd, err = s.accounts.CreateBankAccount(ctx, s.actor, settlementapp.CreateBankAccountRequest{
		Name: "CRDB USD", AccountNumber: "0150-1010", Currency: "USD", LedgerAccountCode: "1010",
	})
	require.NoError(t, err)
	tzs, err = s.accounts.CreateBankAccount(ctx, s.actor, settlementapp.CreateBankAccountRequest{
		Name: "NMB TZS", AccountNumber: "0150-1020", Currency: "TZS", LedgerAccountCode: "1020",
	})
	require.NoError(t, err)
	return usd, tzs
}

func (s *settlementStack) invoice(t *testing.T, number, amount string) *settlementapp.InvoiceResponse {
	t.Helper()
	due := time.Now().Add(7 * 24 * time.Hour)
	inv, err := s.invoices.CreateInvoice(context.Background(), s.actor, settlementapp.CreateInvoiceRequest{
		InvoiceNumber: number,
		CustomerID:    uuid.New(),
		CustomerName:  "Kariakoo Imports",
		Direction:     "to_customer",
		Currency:      "USD",
		Amount:        decimal.RequireFromString(amount),
		DueDate:       &due,
	})
	require.NoError(t, err)
	return inv
}

func TestSettlement_SplitPaymentReconciles(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := newSettlementStack(t, nil)
	ctx := context.Background()
	usd, tzs := s.seed(t)
	inv := s.invoice(t, "INV-9001", "150")

	resp, err := s.settlements.RecordPayment(ctx, s.actor, inv.ID, settlementapp.RecordPaymentRequest{
		Amount:    decimal.RequireFromString("150"),
		Method:    string(settlement.PaymentMethodBankTransfer),
		Reference: "TT-1",
		Splits: []settlementapp.SplitRequest{
			{BankAccountID: usd.ID, Amount: decimal.RequireFromString("100")},
			{BankAccountID: tzs.ID, Amount: decimal.RequireFromString("50")},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.FullyPaid)
	require.Len(t, resp.Payments, 2)
	require.Len(t, resp.JournalEntryIDs, 2)

	stored, err := s.invoices.GetInvoice(ctx, s.actor, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", stored.Status)
	assert.True(t, stored.AmountPaid.Equal(decimal.RequireFromString("150")))

	gotTZS, err := s.accounts.GetBankAccount(ctx, s.actor, tzs.ID)
	require.NoError(t, err)
	assert.True(t, gotTZS.Balance.Equal(decimal.RequireFromString("125000")))

	for _, id := range resp.JournalEntryIDs {
		entry, err := s.journal.FindByID(ctx, s.actor.TenantID, id)
		require.NoError(t, err)
		assert.True(t, entry.TotalDebit().Equal(entry.TotalCredit()))
	}

	report, err := s.reconciliation.Report(ctx, s.actor)
	require.NoError(t, err)
	assert.Zero(t, report.Summary.AccountsWithDrift)
	assert.Zero(t, report.Summary.PaymentsWithoutJournal)

	var posted int64
	require.NoError(t, s.db.DB.Model(&models.OutboxEntryModel{}).
		Where("tenant_id = ? AND event_type = ?", s.actor.TenantID, settlement.EventJournalEntryPosted).
		Count(&posted).Error)
	assert.Equal(t, int64(2), posted)
}

func TestSettlement_ConcurrentPaymentsStayConsistent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := newSettlementStack(t, nil)
	ctx := context.Background()
	usd, _ := s.seed(t)
	inv := s.invoice(t, "INV-9002", "100")

	const workers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			account := usd.ID
			_, err := s.settlements.RecordPayment(ctx, s.actor, inv.ID, settlementapp.RecordPaymentRequest{
				Amount:        decimal.RequireFromString("30"),
				Method:        string(settlement.PaymentMethodCash),
				BankAccountID: &account,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Positive(t, succeeded)

	paid := decimal.NewFromInt(int64(30 * succeeded))
	stored, err := s.invoices.GetInvoice(ctx, s.actor, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.Equal(paid), "amount paid %s, want %s", stored.AmountPaid, paid)

	account, err := s.accounts.GetBankAccount(ctx, s.actor, usd.ID)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(paid))

	report, err := s.reconciliation.Report(ctx, s.actor)
	require.NoError(t, err)
	assert.Zero(t, report.Summary.AccountsWithDrift)
}

func TestSettlement_IdempotencyKeyWithRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := NewTestRedis(t)
	s := newSettlementStack(t, cache.NewRedisIdempotencyStore(client, ""))
	ctx := context.Background()
	usd, _ := s.seed(t)
	inv := s.invoice(t, "INV-9003", "100")

	account := usd.ID
	req := settlementapp.RecordPaymentRequest{
		Amount:         decimal.RequireFromString("40"),
		Method:         string(settlement.PaymentMethodMobileMoney),
		BankAccountID:  &account,
		IdempotencyKey: "till-7-0042",
	}
	_, err := s.settlements.RecordPayment(ctx, s.actor, inv.ID, req)
	require.NoError(t, err)

	_, err = s.settlements.RecordPayment(ctx, s.actor, inv.ID, req)
	assert.ErrorIs(t, err, shared.ErrDuplicateRequest)

	payments, err := s.settlements.ListPayments(ctx, s.actor, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestSettlement_CancelRequiresNoPayments(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := newSettlementStack(t, nil)
	ctx := context.Background()
	usd, _ := s.seed(t)
	paid := s.invoice(t, "INV-9004", "100")
	open := s.invoice(t, "INV-9005", "100")

	account := usd.ID
	_, err := s.settlements.RecordPayment(ctx, s.actor, paid.ID, settlementapp.RecordPaymentRequest{
		Amount: decimal.RequireFromString("10"), Method: "cash", BankAccountID: &account,
	})
	require.NoError(t, err)

	_, err = s.invoices.CancelInvoice(ctx, s.actor, paid.ID, settlementapp.CancelInvoiceRequest{Reason: "duplicate"})
	assert.ErrorIs(t, err, settlement.ErrInvoiceHasPayments)

	cancelled, err := s.invoices.CancelInvoice(ctx, s.actor, open.ID, settlementapp.CancelInvoiceRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
}
