package settlement

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// memStore is an in-memory database for service tests. memScope snapshots
// it before each transaction and restores the snapshot when fn fails, so
// tests can assert that a failed settlement leaves no trace.
type memStore struct {
	invoices map[uuid.UUID]settlement.Invoice
	payments map[uuid.UUID]settlement.Payment
	accounts map[uuid.UUID]settlement.BankAccount
	rates    []settlement.ExchangeRate
	charges  map[string]settlement.ChargeRate
	entries  map[uuid.UUID]settlement.JournalEntry
	events   []shared.DomainEvent

	// injected failures
	journalCreateErr error
	recordErr        error
}

func newMemStore() *memStore {
	return &memStore{
		invoices: map[uuid.UUID]settlement.Invoice{},
		payments: map[uuid.UUID]settlement.Payment{},
		accounts: map[uuid.UUID]settlement.BankAccount{},
		charges:  map[string]settlement.ChargeRate{},
		entries:  map[uuid.UUID]settlement.JournalEntry{},
	}
}

type memSnapshot struct {
	invoices map[uuid.UUID]settlement.Invoice
	payments map[uuid.UUID]settlement.Payment
	accounts map[uuid.UUID]settlement.BankAccount
	rates    []settlement.ExchangeRate
	entries  map[uuid.UUID]settlement.JournalEntry
	events   []shared.DomainEvent
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		invoices: maps.Clone(s.invoices),
		payments: maps.Clone(s.payments),
		accounts: maps.Clone(s.accounts),
		rates:    append([]settlement.ExchangeRate(nil), s.rates...),
		entries:  maps.Clone(s.entries),
		events:   append([]shared.DomainEvent(nil), s.events...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.invoices = snap.invoices
	s.payments = snap.payments
	s.accounts = snap.accounts
	s.rates = snap.rates
	s.entries = snap.entries
	s.events = snap.events
}

func (s *memStore) scope() *memScope {
	return &memScope{store: s}
}

// seed helpers

func (s *memStore) putInvoice(inv *settlement.Invoice) {
	c := *inv
	c.ClearDomainEvents()
	s.invoices[inv.ID] = c
}

func (s *memStore) putAccount(a *settlement.BankAccount) {
	c := *a
	c.ClearDomainEvents()
	s.accounts[a.ID] = c
}

func (s *memStore) invoice(id uuid.UUID) settlement.Invoice { return s.invoices[id] }

func (s *memStore) account(id uuid.UUID) settlement.BankAccount { return s.accounts[id] }

func (s *memStore) eventTypes() []string {
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType()
	}
	return out
}

// memScope

type memScope struct {
	store *memStore
}

func (m *memScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	snap := m.store.snapshot()
	if err := fn(m); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

func (m *memScope) InvoiceRepo() settlement.InvoiceRepository { return &memInvoiceRepo{m.store} }
func (m *memScope) PaymentRepo() settlement.PaymentRepository { return &memPaymentRepo{m.store} }
func (m *memScope) BankAccountRepo() settlement.BankAccountRepository {
	return &memBankAccountRepo{m.store}
}
func (m *memScope) ExchangeRateRepo() settlement.ExchangeRateRepository {
	return &memRateRepo{m.store}
}
func (m *memScope) JournalRepo() settlement.JournalRepository { return &memJournalRepo{m.store} }
func (m *memScope) Events() EventRecorder                     { return &memRecorder{m.store} }

// invoices

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*settlement.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *memInvoiceRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Invoice, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memInvoiceRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter settlement.InvoiceFilter) ([]settlement.Invoice, int64, error) {
	var out []settlement.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Direction != "" && inv.Direction != filter.Direction {
			continue
		}
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, inv)
	}
	return out, int64(len(out)), nil
}

func (r *memInvoiceRepo) FindOverdueCandidates(_ context.Context, tenantID uuid.UUID, asOf time.Time, limit int) ([]*settlement.Invoice, error) {
	var out []*settlement.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID != tenantID || inv.Status != settlement.InvoiceStatusPending {
			continue
		}
		if inv.DueDate == nil || !inv.DueDate.Before(asOf) {
			continue
		}
		c := inv
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) ExistsByNumber(_ context.Context, tenantID uuid.UUID, number string) (bool, error) {
	for _, inv := range r.s.invoices {
		if inv.TenantID == tenantID && inv.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *settlement.Invoice) error {
	r.s.putInvoice(inv)
	return nil
}

func (r *memInvoiceRepo) SaveWithLock(_ context.Context, inv *settlement.Invoice) error {
	stored, ok := r.s.invoices[inv.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != inv.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.s.putInvoice(inv)
	return nil
}

// payments

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*settlement.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) FindByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) ([]settlement.Payment, error) {
	out := []settlement.Payment{}
	for _, p := range r.s.payments {
		if p.TenantID == tenantID && p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) FindWithoutJournal(_ context.Context, tenantID uuid.UUID) ([]settlement.Payment, error) {
	out := []settlement.Payment{}
	for _, p := range r.s.payments {
		if p.TenantID == tenantID && p.JournalEntryID == nil && p.Status != settlement.PaymentStatusRejected {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) Create(_ context.Context, payments ...*settlement.Payment) error {
	for _, p := range payments {
		c := *p
		c.ClearDomainEvents()
		r.s.payments[p.ID] = c
	}
	return nil
}

func (r *memPaymentRepo) SaveWithLock(_ context.Context, p *settlement.Payment) error {
	stored, ok := r.s.payments[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != p.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	c := *p
	c.ClearDomainEvents()
	r.s.payments[p.ID] = c
	return nil
}

// bank accounts

type memBankAccountRepo struct{ s *memStore }

func (r *memBankAccountRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*settlement.BankAccount, error) {
	a, ok := r.s.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r *memBankAccountRepo) FindByIDsForUpdate(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*settlement.BankAccount, error) {
	out := make(map[uuid.UUID]*settlement.BankAccount, len(ids))
	for _, id := range ids {
		if a, ok := r.s.accounts[id]; ok && a.TenantID == tenantID {
			c := a
			out[id] = &c
		}
	}
	return out, nil
}

func (r *memBankAccountRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]settlement.BankAccount, error) {
	out := []settlement.BankAccount{}
	for _, a := range r.s.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memBankAccountRepo) ExistsByLedgerCode(_ context.Context, tenantID uuid.UUID, code string) (bool, error) {
	for _, a := range r.s.accounts {
		if a.TenantID == tenantID && a.LedgerAccountCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBankAccountRepo) Create(_ context.Context, a *settlement.BankAccount) error {
	r.s.putAccount(a)
	return nil
}

func (r *memBankAccountRepo) SaveWithLock(_ context.Context, a *settlement.BankAccount) error {
	stored, ok := r.s.accounts[a.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != a.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.s.putAccount(a)
	return nil
}

// exchange rates

type memRateRepo struct{ s *memStore }

func (r *memRateRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, error) {
	out := []settlement.ExchangeRate{}
	for _, rate := range r.s.rates {
		if rate.TenantID == tenantID {
			out = append(out, rate)
		}
	}
	return out, nil
}

func (r *memRateRepo) ReplaceAll(_ context.Context, tenantID uuid.UUID, rates []*settlement.ExchangeRate) error {
	kept := r.s.rates[:0:0]
	for _, rate := range r.s.rates {
		if rate.TenantID != tenantID {
			kept = append(kept, rate)
		}
	}
	for _, rate := range rates {
		kept = append(kept, *rate)
	}
	r.s.rates = kept
	return nil
}

// charge rates

type memChargeRepo struct{ s *memStore }

func chargeKey(tenantID uuid.UUID, region, category string) string {
	return tenantID.String() + "/" + region + "/" + category
}

func (r *memChargeRepo) Find(_ context.Context, tenantID uuid.UUID, region, category string) (*settlement.ChargeRate, error) {
	rate, ok := r.s.charges[chargeKey(tenantID, region, category)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rate, nil
}

func (r *memChargeRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]settlement.ChargeRate, error) {
	out := []settlement.ChargeRate{}
	for _, rate := range r.s.charges {
		if rate.TenantID == tenantID {
			out = append(out, rate)
		}
	}
	return out, nil
}

func (r *memChargeRepo) Upsert(_ context.Context, rate *settlement.ChargeRate) error {
	r.s.charges[chargeKey(rate.TenantID, rate.Region, rate.Category)] = *rate
	return nil
}

// journal

type memJournalRepo struct{ s *memStore }

func (r *memJournalRepo) Create(_ context.Context, entries ...*settlement.JournalEntry) error {
	if r.s.journalCreateErr != nil {
		return r.s.journalCreateErr
	}
	for _, e := range entries {
		c := *e
		c.Lines = append([]settlement.JournalLine(nil), e.Lines...)
		r.s.entries[e.ID] = c
	}
	return nil
}

func (r *memJournalRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*settlement.JournalEntry, error) {
	e, ok := r.s.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &e, nil
}

func (r *memJournalRepo) FindByPayment(_ context.Context, tenantID, paymentID uuid.UUID) ([]*settlement.JournalEntry, error) {
	var out []*settlement.JournalEntry
	for _, e := range r.s.entries {
		if e.TenantID == tenantID && e.PaymentID != nil && *e.PaymentID == paymentID {
			c := e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memJournalRepo) SumByAccount(_ context.Context, tenantID uuid.UUID, code string) (settlement.LedgerTotals, error) {
	var totals settlement.LedgerTotals
	for _, e := range r.s.entries {
		if e.TenantID != tenantID {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountCode == code {
				totals.Debit = totals.Debit.Add(l.Debit)
				totals.Credit = totals.Credit.Add(l.Credit)
			}
		}
	}
	return totals, nil
}

func (r *memJournalRepo) FindUnexported(_ context.Context, tenantID uuid.UUID, postedBefore time.Time, limit int) ([]*settlement.JournalEntry, error) {
	var out []*settlement.JournalEntry
	for _, e := range r.s.entries {
		if e.TenantID != tenantID || e.ExportedAt != nil || !e.PostedAt.Before(postedBefore) {
			continue
		}
		c := e
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memJournalRepo) MarkExported(_ context.Context, tenantID, id uuid.UUID, at time.Time) error {
	e, ok := r.s.entries[id]
	if !ok || e.TenantID != tenantID {
		return shared.ErrNotFound
	}
	e.MarkExported(at)
	r.s.entries[id] = e
	return nil
}

// outbox

type memRecorder struct{ s *memStore }

func (r *memRecorder) Record(_ context.Context, events ...shared.DomainEvent) error {
	if r.s.recordErr != nil {
		return r.s.recordErr
	}
	r.s.events = append(r.s.events, events...)
	return nil
}

var (
	_ TransactionScope                  = (*memScope)(nil)
	_ settlement.InvoiceRepository      = (*memInvoiceRepo)(nil)
	_ settlement.PaymentRepository      = (*memPaymentRepo)(nil)
	_ settlement.BankAccountRepository  = (*memBankAccountRepo)(nil)
	_ settlement.ExchangeRateRepository = (*memRateRepo)(nil)
	_ settlement.ChargeRateRepository   = (*memChargeRepo)(nil)
	_ settlement.JournalRepository      = (*memJournalRepo)(nil)
)
