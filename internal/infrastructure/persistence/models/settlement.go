package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	CustomerID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	CustomerName  string                   `gorm:"type:varchar(200);not null"`
	ShipmentID    *uuid.UUID               `gorm:"type:uuid"`
	Direction     settlement.FlowDirection `gorm:"type:varchar(20);not null;index"`
	Currency      valueobject.Currency     `gorm:"type:varchar(3);not null"`
	Amount        decimal.Decimal          `gorm:"type:numeric(18,4);not null"`
	AmountPaid    decimal.Decimal          `gorm:"type:numeric(18,4);not null;default:0"`
	Status        settlement.InvoiceStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	DueDate       *time.Time               `gorm:"index"`
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:varchar(500)"`
	Notes         string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *settlement.Invoice {
	inv := &settlement.Invoice{
		InvoiceNumber: m.InvoiceNumber,
		CustomerID:    m.CustomerID,
		CustomerName:  m.CustomerName,
		ShipmentID:    m.ShipmentID,
		Direction:     m.Direction,
		Currency:      m.Currency,
		Amount:        m.Amount,
		AmountPaid:    m.AmountPaid,
		Status:        m.Status,
		DueDate:       m.DueDate,
		PaidAt:        m.PaidAt,
		CancelledAt:   m.CancelledAt,
		CancelReason:  m.CancelReason,
		Notes:         m.Notes,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	return inv
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *settlement.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		CustomerName:  inv.CustomerName,
		ShipmentID:    inv.ShipmentID,
		Direction:     inv.Direction,
		Currency:      inv.Currency,
		Amount:        inv.Amount,
		AmountPaid:    inv.AmountPaid,
		Status:        inv.Status,
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		CancelReason:  inv.CancelReason,
		Notes:         inv.Notes,
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	return m
}

// PaymentModel is the persistence model for one settlement leg.
type PaymentModel struct {
	TenantAggregateModel
	SettlementID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	InvoiceID       uuid.UUID                `gorm:"type:uuid;not null;index"`
	BankAccountID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	Direction       settlement.FlowDirection `gorm:"type:varchar(20);not null"`
	Method          settlement.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference       string                   `gorm:"type:varchar(100)"`
	Currency        valueobject.Currency     `gorm:"type:varchar(3);not null"`
	Amount          decimal.Decimal          `gorm:"type:numeric(18,4);not null"`
	InvoiceAmount   decimal.Decimal          `gorm:"type:numeric(18,4);not null"`
	AccountCurrency valueobject.Currency     `gorm:"type:varchar(3);not null"`
	AccountAmount   decimal.Decimal          `gorm:"type:numeric(18,4);not null"`
	Degraded        bool                     `gorm:"not null;default:false"`
	Status          settlement.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	JournalEntryID  *uuid.UUID               `gorm:"type:uuid"`
	VerifiedBy      *uuid.UUID               `gorm:"type:uuid"`
	VerifiedAt      *time.Time
	RejectedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectedAt      *time.Time
	RejectionReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *settlement.Payment {
	p := &settlement.Payment{
		SettlementID:    m.SettlementID,
		InvoiceID:       m.InvoiceID,
		BankAccountID:   m.BankAccountID,
		Direction:       m.Direction,
		Method:          m.Method,
		Reference:       m.Reference,
		Currency:        m.Currency,
		Amount:          m.Amount,
		InvoiceAmount:   m.InvoiceAmount,
		AccountCurrency: m.AccountCurrency,
		AccountAmount:   m.AccountAmount,
		Degraded:        m.Degraded,
		Status:          m.Status,
		JournalEntryID:  m.JournalEntryID,
		VerifiedBy:      m.VerifiedBy,
		VerifiedAt:      m.VerifiedAt,
		RejectedBy:      m.RejectedBy,
		RejectedAt:      m.RejectedAt,
		RejectionReason: m.RejectionReason,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// PaymentModelFromDomain creates a persistence model from a domain Payment.
func PaymentModelFromDomain(p *settlement.Payment) *PaymentModel {
	m := &PaymentModel{
		SettlementID:    p.SettlementID,
		InvoiceID:       p.InvoiceID,
		BankAccountID:   p.BankAccountID,
		Direction:       p.Direction,
		Method:          p.Method,
		Reference:       p.Reference,
		Currency:        p.Currency,
		Amount:          p.Amount,
		InvoiceAmount:   p.InvoiceAmount,
		AccountCurrency: p.AccountCurrency,
		AccountAmount:   p.AccountAmount,
		Degraded:        p.Degraded,
		Status:          p.Status,
		JournalEntryID:  p.JournalEntryID,
		VerifiedBy:      p.VerifiedBy,
		VerifiedAt:      p.VerifiedAt,
		RejectedBy:      p.RejectedBy,
		RejectedAt:      p.RejectedAt,
		RejectionReason: p.RejectionReason,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// BankAccountModel is the persistence model for a bank or cash account.
type BankAccountModel struct {
	TenantAggregateModel
	Name              string               `gorm:"type:varchar(100);not null"`
	AccountNumber     string               `gorm:"type:varchar(50)"`
	Currency          valueobject.Currency `gorm:"type:varchar(3);not null"`
	LedgerAccountCode string               `gorm:"type:varchar(20);not null;uniqueIndex:idx_bank_account_tenant_code,priority:2"`
	OpeningBalance    decimal.Decimal      `gorm:"type:numeric(18,4);not null;default:0"`
	Balance           decimal.Decimal      `gorm:"type:numeric(18,4);not null;default:0"`
	LastReconciledAt  *time.Time
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount.
func (m *BankAccountModel) ToDomain() *settlement.BankAccount {
	a := &settlement.BankAccount{
		Name:              m.Name,
		AccountNumber:     m.AccountNumber,
		Currency:          m.Currency,
		LedgerAccountCode: m.LedgerAccountCode,
		OpeningBalance:    m.OpeningBalance,
		Balance:           m.Balance,
		LastReconciledAt:  m.LastReconciledAt,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// BankAccountModelFromDomain creates a persistence model from a domain BankAccount.
func BankAccountModelFromDomain(a *settlement.BankAccount) *BankAccountModel {
	m := &BankAccountModel{
		Name:              a.Name,
		AccountNumber:     a.AccountNumber,
		Currency:          a.Currency,
		LedgerAccountCode: a.LedgerAccountCode,
		OpeningBalance:    a.OpeningBalance,
		Balance:           a.Balance,
		LastReconciledAt:  a.LastReconciledAt,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// ExchangeRateModel stores one row of a tenant's rate snapshot.
type ExchangeRateModel struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_exchange_rate_tenant_currency,priority:1"`
	Currency   valueobject.Currency `gorm:"type:varchar(3);not null;uniqueIndex:idx_exchange_rate_tenant_currency,priority:2"`
	RateToBase decimal.Decimal      `gorm:"type:numeric(18,8);not null"`
	AsOf       time.Time            `gorm:"not null"`
	CreatedAt  time.Time            `gorm:"not null"`
	UpdatedAt  time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate.
func (m *ExchangeRateModel) ToDomain() settlement.ExchangeRate {
	return settlement.ExchangeRate{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Currency:   m.Currency,
		RateToBase: m.RateToBase,
		AsOf:       m.AsOf,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ExchangeRateModelFromDomain creates a persistence model from a domain ExchangeRate.
func ExchangeRateModelFromDomain(r *settlement.ExchangeRate) *ExchangeRateModel {
	return &ExchangeRateModel{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Currency:   r.Currency,
		RateToBase: r.RateToBase,
		AsOf:       r.AsOf,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// ChargeRateModel stores the tariff for one region and product category.
type ChargeRateModel struct {
	ID                    uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID              uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_charge_rate_tenant_region_category,priority:1"`
	Region                string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_charge_rate_tenant_region_category,priority:2"`
	Category              string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_charge_rate_tenant_region_category,priority:3"`
	Currency              valueobject.Currency `gorm:"type:varchar(3);not null"`
	RatePerKg             decimal.Decimal      `gorm:"type:numeric(18,4);not null"`
	DutyPercentage        decimal.Decimal      `gorm:"type:numeric(9,4);not null;default:0"`
	HandlingFeePercentage decimal.Decimal      `gorm:"type:numeric(9,4);not null;default:0"`
	MarkupPercentage      decimal.Decimal      `gorm:"type:numeric(9,4);not null;default:0"`
	CreatedAt             time.Time            `gorm:"not null"`
	UpdatedAt             time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChargeRateModel) TableName() string {
	return "charge_rates"
}

// ToDomain converts the persistence model to a domain ChargeRate.
func (m *ChargeRateModel) ToDomain() settlement.ChargeRate {
	return settlement.ChargeRate{
		ID:                    m.ID,
		TenantID:              m.TenantID,
		Region:                m.Region,
		Category:              m.Category,
		Currency:              m.Currency,
		RatePerKg:             m.RatePerKg,
		DutyPercentage:        m.DutyPercentage,
		HandlingFeePercentage: m.HandlingFeePercentage,
		MarkupPercentage:      m.MarkupPercentage,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// ChargeRateModelFromDomain creates a persistence model from a domain ChargeRate.
func ChargeRateModelFromDomain(r *settlement.ChargeRate) *ChargeRateModel {
	return &ChargeRateModel{
		ID:                    r.ID,
		TenantID:              r.TenantID,
		Region:                r.Region,
		Category:              r.Category,
		Currency:              r.Currency,
		RatePerKg:             r.RatePerKg,
		DutyPercentage:        r.DutyPercentage,
		HandlingFeePercentage: r.HandlingFeePercentage,
		MarkupPercentage:      r.MarkupPercentage,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// JournalEntryModel is the persistence model for a posted journal entry.
// Entries are immutable apart from ExportedAt.
type JournalEntryModel struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_journal_tenant_exported,priority:1"`
	EntryNumber     string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	InvoiceID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	PaymentID       *uuid.UUID         `gorm:"type:uuid;index"`
	SettlementID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	Description     string             `gorm:"type:varchar(500)"`
	PostedAt        time.Time          `gorm:"not null"`
	PostedBy        *uuid.UUID         `gorm:"type:uuid"`
	ExportedAt      *time.Time         `gorm:"index:idx_journal_tenant_exported,priority:2"`
	ReversesEntryID *uuid.UUID         `gorm:"type:uuid"`
	CreatedAt       time.Time          `gorm:"not null"`
	Lines           []JournalLineModel `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalLineModel is one debit or credit line of a journal entry.
type JournalLineModel struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	EntryID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	TenantID    uuid.UUID            `gorm:"type:uuid;not null;index:idx_journal_line_tenant_account,priority:1"`
	LineNo      int                  `gorm:"not null"`
	AccountCode string               `gorm:"type:varchar(20);not null;index:idx_journal_line_tenant_account,priority:2"`
	Debit       decimal.Decimal      `gorm:"type:numeric(18,4);not null;default:0"`
	Credit      decimal.Decimal      `gorm:"type:numeric(18,4);not null;default:0"`
	Currency    valueobject.Currency `gorm:"type:varchar(3);not null"`
	BaseAmount  decimal.Decimal      `gorm:"type:numeric(18,4);not null;default:0"`
	Memo        string               `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model, lines included, to a domain JournalEntry.
func (m *JournalEntryModel) ToDomain() *settlement.JournalEntry {
	e := &settlement.JournalEntry{
		ID:              m.ID,
		TenantID:        m.TenantID,
		EntryNumber:     m.EntryNumber,
		InvoiceID:       m.InvoiceID,
		PaymentID:       m.PaymentID,
		SettlementID:    m.SettlementID,
		Description:     m.Description,
		PostedAt:        m.PostedAt,
		PostedBy:        m.PostedBy,
		ExportedAt:      m.ExportedAt,
		ReversesEntryID: m.ReversesEntryID,
		CreatedAt:       m.CreatedAt,
		Lines:           make([]settlement.JournalLine, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		e.Lines = append(e.Lines, settlement.JournalLine{
			ID:          l.ID,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Currency:    l.Currency,
			BaseAmount:  l.BaseAmount,
			Memo:        l.Memo,
		})
	}
	return e
}

// JournalEntryModelFromDomain creates a persistence model from a domain JournalEntry.
// Lines keep their order through LineNo.
func JournalEntryModelFromDomain(e *settlement.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{
		ID:              e.ID,
		TenantID:        e.TenantID,
		EntryNumber:     e.EntryNumber,
		InvoiceID:       e.InvoiceID,
		PaymentID:       e.PaymentID,
		SettlementID:    e.SettlementID,
		Description:     e.Description,
		PostedAt:        e.PostedAt,
		PostedBy:        e.PostedBy,
		ExportedAt:      e.ExportedAt,
		ReversesEntryID: e.ReversesEntryID,
		CreatedAt:       e.CreatedAt,
		Lines:           make([]JournalLineModel, 0, len(e.Lines)),
	}
	for i, l := range e.Lines {
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.Lines = append(m.Lines, JournalLineModel{
			ID:          id,
			EntryID:     e.ID,
			TenantID:    e.TenantID,
			LineNo:      i + 1,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Currency:    l.Currency,
			BaseAmount:  l.BaseAmount,
			Memo:        l.Memo,
		})
	}
	return m
}
