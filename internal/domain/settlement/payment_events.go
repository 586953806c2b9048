package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// Payment event type names
const (
	EventPaymentRecorded = "PaymentRecorded"
	EventPaymentVerified = "PaymentVerified"
	EventPaymentRejected = "PaymentRejected"

	AggregateTypePayment = "Payment"
)

// PaymentRecordedEvent is raised once per settlement leg
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	SettlementID  uuid.UUID       `json:"settlement_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Direction     FlowDirection   `json:"direction"`
	Method        PaymentMethod   `json:"method"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceDelta  decimal.Decimal `json:"balance_delta"`
	Degraded      bool            `json:"degraded"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRecorded, AggregateTypePayment, p.ID, p.TenantID),
		SettlementID:    p.SettlementID,
		InvoiceID:       p.InvoiceID,
		BankAccountID:   p.BankAccountID,
		Direction:       p.Direction,
		Method:          p.Method,
		Currency:        p.Currency.String(),
		Amount:          p.Amount,
		BalanceDelta:    p.BalanceDelta(),
		Degraded:        p.Degraded,
	}
}

// PaymentVerifiedEvent is raised when staff confirm a payment
type PaymentVerifiedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID `json:"invoice_id"`
	VerifiedBy uuid.UUID `json:"verified_by"`
}

// NewPaymentVerifiedEvent creates a new PaymentVerifiedEvent
func NewPaymentVerifiedEvent(p *Payment) *PaymentVerifiedEvent {
	e := &PaymentVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentVerified, AggregateTypePayment, p.ID, p.TenantID),
		InvoiceID:       p.InvoiceID,
	}
	if p.VerifiedBy != nil {
		e.VerifiedBy = *p.VerifiedBy
	}
	return e
}

// PaymentRejectedEvent is raised when a payment is rejected and reversed
type PaymentRejectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// NewPaymentRejectedEvent creates a new PaymentRejectedEvent
func NewPaymentRejectedEvent(p *Payment) *PaymentRejectedEvent {
	return &PaymentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRejected, AggregateTypePayment, p.ID, p.TenantID),
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		Reason:          p.RejectionReason,
	}
}
