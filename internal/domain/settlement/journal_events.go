package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// PostedLine is the wire form of a journal line inside events
type PostedLine struct {
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Currency    string          `json:"currency"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
}

// JournalEntryPostedEvent carries a posted entry to the external ledger
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryNumber     string       `json:"entry_number"`
	InvoiceID       uuid.UUID    `json:"invoice_id"`
	PaymentID       *uuid.UUID   `json:"payment_id,omitempty"`
	SettlementID    uuid.UUID    `json:"settlement_id"`
	Description     string       `json:"description"`
	PostedAt        time.Time    `json:"posted_at"`
	ReversesEntryID *uuid.UUID   `json:"reverses_entry_id,omitempty"`
	Lines           []PostedLine `json:"lines"`
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	lines := make([]PostedLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = PostedLine{
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Currency:    l.Currency.String(),
			BaseAmount:  l.BaseAmount,
		}
	}
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventJournalEntryPosted, AggregateTypeJournalEntry, e.ID, e.TenantID),
		EntryNumber:     e.EntryNumber,
		InvoiceID:       e.InvoiceID,
		PaymentID:       e.PaymentID,
		SettlementID:    e.SettlementID,
		Description:     e.Description,
		PostedAt:        e.PostedAt,
		ReversesEntryID: e.ReversesEntryID,
		Lines:           lines,
	}
}
