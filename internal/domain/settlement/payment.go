package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
)

// PaymentMethod is how money was received or sent
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodCard, PaymentMethodCheque:
		return true
	}
	return false
}

// PaymentStatus is the verification state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// IsValid checks if the status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}

// Payment is one settlement leg against one bank account. Apart from its
// verification status it never changes after creation.
type Payment struct {
	shared.TenantAggregateRoot
	SettlementID    uuid.UUID
	InvoiceID       uuid.UUID
	BankAccountID   uuid.UUID
	Direction       FlowDirection
	Method          PaymentMethod
	Reference       string
	Currency        valueobject.Currency
	Amount          decimal.Decimal
	InvoiceAmount   decimal.Decimal
	AccountCurrency valueobject.Currency
	AccountAmount   decimal.Decimal
	Degraded        bool
	Status          PaymentStatus
	JournalEntryID  *uuid.UUID
	VerifiedBy      *uuid.UUID
	VerifiedAt      *time.Time
	RejectedBy      *uuid.UUID
	RejectedAt      *time.Time
	RejectionReason string
}

// NewPaymentParams carries one leg of a settlement
type NewPaymentParams struct {
	SettlementID    uuid.UUID
	InvoiceID       uuid.UUID
	BankAccountID   uuid.UUID
	Direction       FlowDirection
	Method          PaymentMethod
	Reference       string
	Currency        valueobject.Currency
	Amount          decimal.Decimal
	InvoiceAmount   decimal.Decimal
	AccountCurrency valueobject.Currency
	AccountAmount   decimal.Decimal
	Degraded        bool
}

// NewPayment creates a pending payment leg
func NewPayment(actor shared.Actor, p NewPaymentParams) (*Payment, error) {
	if p.InvoiceID == uuid.Nil || p.BankAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment requires an invoice and a bank account")
	}
	if !p.Method.IsValid() {
		return nil, ErrInvalidMethod
	}
	if !p.Direction.IsValid() {
		return nil, ErrInvalidDirection
	}
	if !p.Amount.IsPositive() || p.InvoiceAmount.IsNegative() || p.AccountAmount.IsNegative() {
		return nil, ErrNonPositivePayment
	}
	if !p.Currency.IsValid() || !p.AccountCurrency.IsValid() {
		return nil, ErrInvalidCurrency
	}

	payment := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRootFor(actor),
		SettlementID:        p.SettlementID,
		InvoiceID:           p.InvoiceID,
		BankAccountID:       p.BankAccountID,
		Direction:           p.Direction,
		Method:              p.Method,
		Reference:           strings.TrimSpace(p.Reference),
		Currency:            p.Currency,
		Amount:              p.Amount,
		InvoiceAmount:       p.InvoiceAmount,
		AccountCurrency:     p.AccountCurrency,
		AccountAmount:       p.AccountAmount,
		Degraded:            p.Degraded,
		Status:              PaymentStatusPending,
	}
	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))
	return payment, nil
}

// BalanceDelta is the signed change this leg makes to its bank account
func (p *Payment) BalanceDelta() decimal.Decimal {
	return p.AccountAmount.Mul(p.Direction.Sign())
}

// AttachJournalEntry links the ledger entry posted for this leg
func (p *Payment) AttachJournalEntry(entryID uuid.UUID) {
	p.JournalEntryID = &entryID
}

// Verify confirms a pending payment
func (p *Payment) Verify(actor shared.Actor, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot verify payment in %s status", p.Status))
	}
	verifiedBy := actor.UserID
	p.Status = PaymentStatusVerified
	p.VerifiedBy = &verifiedBy
	p.VerifiedAt = &at
	p.UpdatedAt = at
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentVerifiedEvent(p))
	return nil
}

// Reject marks a pending or verified payment as rejected
func (p *Payment) Reject(actor shared.Actor, reason string, at time.Time) error {
	if p.Status == PaymentStatusRejected {
		return shared.NewDomainError("INVALID_STATE", "Payment is already rejected")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	rejectedBy := actor.UserID
	p.Status = PaymentStatusRejected
	p.RejectedBy = &rejectedBy
	p.RejectedAt = &at
	p.RejectionReason = reason
	p.UpdatedAt = at
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentRejectedEvent(p))
	return nil
}
