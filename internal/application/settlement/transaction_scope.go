package settlement

import (
	"context"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// TransactionScope provides transactional access to settlement repositories.
// Everything a settlement touches (invoice, payments, bank balances, journal
// entries and outbox events) commits or rolls back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// EventRecorder writes domain events to the outbox inside the current transaction
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// TransactionalRepositories exposes repositories bound to one transaction.
//
//   - InvoiceRepo: the Invoice aggregate; loaded FOR UPDATE when settling.
//   - PaymentRepo: append-mostly payment legs; only status changes afterwards.
//   - BankAccountRepo: running balances, versioned updates.
//   - ExchangeRateRepo: the rate snapshot read inside the settlement.
//   - JournalRepo: posted journal entries and their lines.
//   - Events: outbox writer sharing the same transaction.
type TransactionalRepositories interface {
	InvoiceRepo() settlement.InvoiceRepository
	PaymentRepo() settlement.PaymentRepository
	BankAccountRepo() settlement.BankAccountRepository
	ExchangeRateRepo() settlement.ExchangeRateRepository
	JournalRepo() settlement.JournalRepository
	Events() EventRecorder
}

// NoOpTransactionScope runs without a real transaction.
// Useful for tests or when transaction support is not required.
type NoOpTransactionScope struct {
	invoiceRepo      settlement.InvoiceRepository
	paymentRepo      settlement.PaymentRepository
	bankAccountRepo  settlement.BankAccountRepository
	exchangeRateRepo settlement.ExchangeRateRepository
	journalRepo      settlement.JournalRepository
	events           EventRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo settlement.InvoiceRepository,
	paymentRepo settlement.PaymentRepository,
	bankAccountRepo settlement.BankAccountRepository,
	exchangeRateRepo settlement.ExchangeRateRepository,
	journalRepo settlement.JournalRepository,
	events EventRecorder,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo:      invoiceRepo,
		paymentRepo:      paymentRepo,
		bankAccountRepo:  bankAccountRepo,
		exchangeRateRepo: exchangeRateRepo,
		journalRepo:      journalRepo,
		events:           events,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() settlement.InvoiceRepository { return s.invoiceRepo }

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() settlement.PaymentRepository { return s.paymentRepo }

// BankAccountRepo returns the bank account repository.
func (s *NoOpTransactionScope) BankAccountRepo() settlement.BankAccountRepository {
	return s.bankAccountRepo
}

// ExchangeRateRepo returns the exchange rate repository.
func (s *NoOpTransactionScope) ExchangeRateRepo() settlement.ExchangeRateRepository {
	return s.exchangeRateRepo
}

// JournalRepo returns the journal repository.
func (s *NoOpTransactionScope) JournalRepo() settlement.JournalRepository { return s.journalRepo }

// Events returns the event recorder.
func (s *NoOpTransactionScope) Events() EventRecorder { return s.events }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
