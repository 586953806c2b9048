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

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true once the invoice is paid or cancelled
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanApplyPayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

// Invoice is the aggregate root for an amount billed to a customer or agent,
// or owed to an agent.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string
	CustomerID    uuid.UUID
	CustomerName  string
	ShipmentID    *uuid.UUID
	Direction     FlowDirection
	Currency      valueobject.Currency
	Amount        decimal.Decimal
	AmountPaid    decimal.Decimal
	Status        InvoiceStatus
	DueDate       *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string
	Notes         string
}

// NewInvoiceParams carries the fields needed to open an invoice
type NewInvoiceParams struct {
	InvoiceNumber string
	CustomerID    uuid.UUID
	CustomerName  string
	ShipmentID    *uuid.UUID
	Direction     FlowDirection
	Currency      string
	Amount        decimal.Decimal
	DueDate       *time.Time
	Notes         string
}

// NewInvoice creates a pending invoice
func NewInvoice(actor shared.Actor, p NewInvoiceParams) (*Invoice, error) {
	number := strings.TrimSpace(p.InvoiceNumber)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !p.Direction.IsValid() {
		return nil, ErrInvalidDirection
	}
	currency, err := valueobject.ParseCurrency(p.Currency)
	if err != nil {
		return nil, ErrInvalidCurrency
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootFor(actor),
		InvoiceNumber:       number,
		CustomerID:          p.CustomerID,
		CustomerName:        strings.TrimSpace(p.CustomerName),
		ShipmentID:          p.ShipmentID,
		Direction:           p.Direction,
		Currency:            currency,
		Amount:              p.Amount,
		AmountPaid:          decimal.Zero,
		Status:              InvoiceStatusPending,
		DueDate:             p.DueDate,
		Notes:               p.Notes,
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// Outstanding returns the amount still due, never below zero
func (inv *Invoice) Outstanding() decimal.Decimal {
	out := inv.Amount.Sub(inv.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Overpaid returns how much was received beyond the invoice amount
func (inv *Invoice) Overpaid() decimal.Decimal {
	over := inv.AmountPaid.Sub(inv.Amount)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

// OutstandingMoney returns the outstanding amount in the invoice currency
func (inv *Invoice) OutstandingMoney() valueobject.Money {
	return valueobject.NewMoney(inv.Outstanding(), inv.Currency)
}

// TotalMoney returns the invoice amount in the invoice currency
func (inv *Invoice) TotalMoney() valueobject.Money {
	return valueobject.NewMoney(inv.Amount, inv.Currency)
}

// ApplyAllocation records a computed allocation on the invoice.
// A full payment marks the invoice paid with the settlement date; a partial
// payment leaves the status untouched.
func (inv *Invoice) ApplyAllocation(alloc Allocation, at time.Time) error {
	if alloc.InvoiceID != inv.ID {
		return shared.NewDomainError("INVALID_ALLOCATION", "Allocation was computed for a different invoice")
	}
	if !inv.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to invoice in %s status", inv.Status))
	}
	if !alloc.PaymentAmount.IsPositive() {
		return ErrNonPositivePayment
	}
	if !alloc.PreviousAmountPaid.Equal(inv.AmountPaid) {
		return shared.ErrConcurrencyConflict
	}

	inv.AmountPaid = alloc.NewAmountPaid
	inv.AddDomainEvent(NewInvoicePaymentAppliedEvent(inv, alloc))
	if alloc.IsFullyPaid {
		paidAt := at
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &paidAt
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}
	inv.UpdatedAt = at
	inv.IncrementVersion()
	return nil
}

// ReversePayment removes a rejected payment from the paid amount. A paid
// invoice that falls below its amount returns to pending.
func (inv *Invoice) ReversePayment(amount decimal.Decimal, at time.Time) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot reverse a payment on a cancelled invoice")
	}
	if !amount.IsPositive() {
		return ErrNonPositivePayment
	}
	if amount.GreaterThan(inv.AmountPaid) {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversal exceeds the amount paid")
	}

	inv.AmountPaid = inv.AmountPaid.Sub(amount)
	if inv.Status == InvoiceStatusPaid && inv.AmountPaid.LessThan(inv.Amount) {
		inv.Status = InvoiceStatusPending
		inv.PaidAt = nil
	}
	inv.AddDomainEvent(NewInvoicePaymentReversedEvent(inv, amount))
	inv.UpdatedAt = at
	inv.IncrementVersion()
	return nil
}

// Cancel cancels an invoice that has not received any payment
func (inv *Invoice) Cancel(reason string, at time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if inv.AmountPaid.IsPositive() {
		return ErrInvoiceHasPayments
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	cancelledAt := at
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &cancelledAt
	inv.CancelReason = reason
	inv.UpdatedAt = at
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))
	return nil
}

// MarkOverdue flags a pending invoice whose due date has passed.
// Returns false when nothing changed.
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if inv.Status != InvoiceStatusPending || inv.DueDate == nil || !inv.DueDate.Before(now) {
		return false
	}
	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv))
	return true
}

// UpdateNotes replaces staff notes; allowed in any status
func (inv *Invoice) UpdateNotes(notes string, at time.Time) {
	inv.Notes = notes
	inv.UpdatedAt = at
	inv.IncrementVersion()
}
