package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	shared.Filter
	Status     InvoiceStatus
	Direction  FlowDirection
	CustomerID *uuid.UUID
}

// InvoiceRepository persists Invoice aggregates
type InvoiceRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate loads the invoice with a row lock; use inside a transaction
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, int64, error)
	// FindOverdueCandidates returns pending invoices due before asOf
	FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, asOf time.Time, limit int) ([]*Invoice, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	Create(ctx context.Context, invoice *Invoice) error
	// SaveWithLock updates the invoice if its stored version is Version-1
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository persists payment legs
type PaymentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
	// FindWithoutJournal returns non-rejected payments that have no journal entry
	FindWithoutJournal(ctx context.Context, tenantID uuid.UUID) ([]Payment, error)
	Create(ctx context.Context, payments ...*Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
}

// BankAccountRepository persists bank accounts
type BankAccountRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)
	// FindByIDsForUpdate row-locks and returns the accounts keyed by id
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*BankAccount, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]BankAccount, error)
	ExistsByLedgerCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Create(ctx context.Context, account *BankAccount) error
	SaveWithLock(ctx context.Context, account *BankAccount) error
}

// ExchangeRateRepository stores the tenant's rate snapshot
type ExchangeRateRepository interface {
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]ExchangeRate, error)
	// ReplaceAll swaps the snapshot atomically
	ReplaceAll(ctx context.Context, tenantID uuid.UUID, rates []*ExchangeRate) error
}

// ChargeRateRepository stores region × category tariffs
type ChargeRateRepository interface {
	Find(ctx context.Context, tenantID uuid.UUID, region, category string) (*ChargeRate, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]ChargeRate, error)
	Upsert(ctx context.Context, rate *ChargeRate) error
}

// JournalRepository stores posted journal entries
type JournalRepository interface {
	Create(ctx context.Context, entries ...*JournalEntry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)
	FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]*JournalEntry, error)
	// SumByAccount totals debit and credit lines posted to an account code
	SumByAccount(ctx context.Context, tenantID uuid.UUID, accountCode string) (LedgerTotals, error)
	// FindUnexported lists entries posted before the cutoff that the external ledger has not acknowledged
	FindUnexported(ctx context.Context, tenantID uuid.UUID, postedBefore time.Time, limit int) ([]*JournalEntry, error)
	MarkExported(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error
}
