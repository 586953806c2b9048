package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// Event type names
const (
	EventInvoiceCreated         = "InvoiceCreated"
	EventInvoicePaymentApplied  = "InvoicePaymentApplied"
	EventInvoicePaid            = "InvoicePaid"
	EventInvoicePaymentReversed = "InvoicePaymentReversed"
	EventInvoiceCancelled       = "InvoiceCancelled"
	EventInvoiceOverdue         = "InvoiceOverdue"
	EventJournalEntryPosted     = "JournalEntryPosted"

	AggregateTypeInvoice      = "Invoice"
	AggregateTypeJournalEntry = "JournalEntry"
)

// InvoiceCreatedEvent is raised when an invoice is opened
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Direction     FlowDirection   `json:"direction"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		Direction:       inv.Direction,
		Currency:        inv.Currency.String(),
		Amount:          inv.Amount,
	}
}

// InvoicePaymentAppliedEvent is raised for every recorded settlement
type InvoicePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	FullyPaid     bool            `json:"fully_paid"`
	Legs          int             `json:"legs"`
}

// NewInvoicePaymentAppliedEvent creates a new InvoicePaymentAppliedEvent
func NewInvoicePaymentAppliedEvent(inv *Invoice, alloc Allocation) *InvoicePaymentAppliedEvent {
	return &InvoicePaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePaymentApplied, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		PaymentAmount:   alloc.PaymentAmount,
		AmountPaid:      alloc.NewAmountPaid,
		FullyPaid:       alloc.IsFullyPaid,
		Legs:            len(alloc.Legs),
	}
}

// InvoicePaidEvent is raised when an invoice becomes fully paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePaid, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		Amount:          inv.Amount,
		AmountPaid:      inv.AmountPaid,
		PaidAt:          paidAt,
	}
}

// InvoicePaymentReversedEvent is raised when a rejected payment is taken back
type InvoicePaymentReversedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Reversed      decimal.Decimal `json:"reversed"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Status        InvoiceStatus   `json:"status"`
}

// NewInvoicePaymentReversedEvent creates a new InvoicePaymentReversedEvent
func NewInvoicePaymentReversedEvent(inv *Invoice, amount decimal.Decimal) *InvoicePaymentReversedEvent {
	return &InvoicePaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePaymentReversed, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		Reversed:        amount,
		AmountPaid:      inv.AmountPaid,
		Status:          inv.Status,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCancelled, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          inv.CancelReason,
	}
}

// InvoiceOverdueEvent is raised when the overdue sweep flags an invoice
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceOverdue, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		Outstanding:     inv.Outstanding(),
	}
}
