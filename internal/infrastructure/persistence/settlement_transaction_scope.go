package persistence

import (
	"context"

	appsettle "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormSettlementTransactionScope implements TransactionScope using GORM transactions.
// Repositories and the outbox writer handed to fn all share one *gorm.DB transaction.
type GormSettlementTransactionScope struct {
	db        *gorm.DB
	publisher *event.OutboxPublisher
}

// NewGormSettlementTransactionScope creates a new GormSettlementTransactionScope.
func NewGormSettlementTransactionScope(db *gorm.DB, publisher *event.OutboxPublisher) *GormSettlementTransactionScope {
	return &GormSettlementTransactionScope{db: db, publisher: publisher}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormSettlementTransactionScope) Execute(ctx context.Context, fn func(repos appsettle.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSettlementRepositories{tx: tx, publisher: s.publisher})
	})
}

type gormSettlementRepositories struct {
	tx        *gorm.DB
	publisher *event.OutboxPublisher
}

func (r *gormSettlementRepositories) InvoiceRepo() settlement.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormSettlementRepositories) PaymentRepo() settlement.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormSettlementRepositories) BankAccountRepo() settlement.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

func (r *gormSettlementRepositories) ExchangeRateRepo() settlement.ExchangeRateRepository {
	return NewGormExchangeRateRepository(r.tx)
}

func (r *gormSettlementRepositories) JournalRepo() settlement.JournalRepository {
	return NewGormJournalRepository(r.tx)
}

func (r *gormSettlementRepositories) Events() appsettle.EventRecorder {
	return r.publisher.Recorder(r.tx)
}

var (
	_ appsettle.TransactionScope          = (*GormSettlementTransactionScope)(nil)
	_ appsettle.TransactionalRepositories = (*gormSettlementRepositories)(nil)
)
