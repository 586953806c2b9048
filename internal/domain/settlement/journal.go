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

// JournalLine is one debit or credit against a chart-of-accounts code
type JournalLine struct {
	ID          uuid.UUID
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Currency    valueobject.Currency
	BaseAmount  decimal.Decimal
	Memo        string
}

// JournalEntry is a balanced set of journal lines
type JournalEntry struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	EntryNumber     string
	InvoiceID       uuid.UUID
	PaymentID       *uuid.UUID
	SettlementID    uuid.UUID
	Description     string
	Lines           []JournalLine
	PostedAt        time.Time
	PostedBy        *uuid.UUID
	ExportedAt      *time.Time
	ReversesEntryID *uuid.UUID
	CreatedAt       time.Time
}

// TotalDebit sums the debit side
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Debit)
	}
	return sum
}

// TotalCredit sums the credit side
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Credit)
	}
	return sum
}

// Validate enforces double-entry rules: at least two lines, each line on
// exactly one side with a positive amount, and debits equal to credits.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return ErrUnbalancedEntry
	}
	for _, l := range e.Lines {
		if l.AccountCode == "" || l.Debit.IsNegative() || l.Credit.IsNegative() {
			return ErrUnbalancedEntry
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return ErrUnbalancedEntry
		}
	}
	if !e.TotalDebit().Equal(e.TotalCredit()) {
		return shared.NewDomainError(ErrUnbalancedEntry.Code,
			fmt.Sprintf("Journal entry %s is unbalanced: debit %s, credit %s", e.EntryNumber, e.TotalDebit(), e.TotalCredit()))
	}
	return nil
}

// MarkExported records delivery to the external ledger
func (e *JournalEntry) MarkExported(at time.Time) {
	e.ExportedAt = &at
}

// ChartAccounts names the counter accounts used when posting settlements
type ChartAccounts struct {
	CustomerReceivable string
	AgentReceivable    string
	AgentPayable       string
}

// CounterAccount picks the receivable or payable account for a direction
func (c ChartAccounts) CounterAccount(d FlowDirection) string {
	switch d {
	case FlowToAgent:
		return c.AgentReceivable
	case FlowFromAgent:
		return c.AgentPayable
	default:
		return c.CustomerReceivable
	}
}

// LegPosting carries ledger data for one allocation leg, keyed by bank account
type LegPosting struct {
	PaymentID         uuid.UUID
	LedgerAccountCode string
	Currency          valueobject.Currency
	Amount            decimal.Decimal
	BaseAmount        decimal.Decimal
}

// PostingContext supplies what the poster needs beyond the allocation
type PostingContext struct {
	TenantID     uuid.UUID
	SettlementID uuid.UUID
	Reference    string
	Accounts     ChartAccounts
	Legs         map[uuid.UUID]LegPosting
	PostedBy     *uuid.UUID
	PostedAt     time.Time
}

// Post turns an allocation into one balanced journal entry per leg.
// Incoming money debits the bank and credits a receivable; outgoing money
// debits the agent payable and credits the bank. Any entry that fails
// validation aborts the whole posting, and so does an allocation with no
// legs since it would move money without any entry.
func Post(alloc Allocation, pc PostingContext) ([]*JournalEntry, error) {
	if len(alloc.Legs) == 0 {
		return nil, ErrMissingLedgerLeg
	}
	counter := pc.Accounts.CounterAccount(alloc.Direction)
	if counter == "" {
		return nil, shared.NewDomainError(ErrUnbalancedEntry.Code, "No counter account configured for "+alloc.Direction.String())
	}

	entries := make([]*JournalEntry, 0, len(alloc.Legs))
	for i, leg := range alloc.Legs {
		lp, ok := pc.Legs[leg.BankAccountID]
		if !ok || lp.LedgerAccountCode == "" {
			return nil, ErrMissingLedgerLeg
		}

		bankLine := JournalLine{ID: uuid.New(), AccountCode: lp.LedgerAccountCode, Currency: lp.Currency, BaseAmount: lp.BaseAmount}
		counterLine := JournalLine{ID: uuid.New(), AccountCode: counter, Currency: lp.Currency, BaseAmount: lp.BaseAmount}
		if alloc.Direction.IsOutgoing() {
			counterLine.Debit, counterLine.Credit = lp.Amount, decimal.Zero
			bankLine.Debit, bankLine.Credit = decimal.Zero, lp.Amount
		} else {
			bankLine.Debit, bankLine.Credit = lp.Amount, decimal.Zero
			counterLine.Debit, counterLine.Credit = decimal.Zero, lp.Amount
		}

		entry := &JournalEntry{
			ID:           uuid.New(),
			TenantID:     pc.TenantID,
			EntryNumber:  entryNumber(pc.PostedAt, pc.SettlementID, i+1),
			InvoiceID:    alloc.InvoiceID,
			SettlementID: pc.SettlementID,
			Description:  describe(alloc.Direction, pc.Reference),
			PostedAt:     pc.PostedAt,
			PostedBy:     pc.PostedBy,
			CreatedAt:    pc.PostedAt,
		}
		if lp.PaymentID != uuid.Nil {
			paymentID := lp.PaymentID
			entry.PaymentID = &paymentID
		}
		if alloc.Direction.IsOutgoing() {
			entry.Lines = []JournalLine{counterLine, bankLine}
		} else {
			entry.Lines = []JournalLine{bankLine, counterLine}
		}
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reverse builds the mirror entry that cancels a posted entry
func Reverse(original *JournalEntry, postedBy *uuid.UUID, at time.Time, reason string) (*JournalEntry, error) {
	if err := original.Validate(); err != nil {
		return nil, err
	}
	reversesID := original.ID
	entry := &JournalEntry{
		ID:              uuid.New(),
		TenantID:        original.TenantID,
		EntryNumber:     original.EntryNumber + "-R",
		InvoiceID:       original.InvoiceID,
		PaymentID:       original.PaymentID,
		SettlementID:    original.SettlementID,
		Description:     strings.TrimSpace("Reversal of " + original.EntryNumber + ": " + reason),
		PostedAt:        at,
		PostedBy:        postedBy,
		ReversesEntryID: &reversesID,
		CreatedAt:       at,
		Lines:           make([]JournalLine, len(original.Lines)),
	}
	for i, l := range original.Lines {
		l.ID = uuid.New()
		l.Debit, l.Credit = l.Credit, l.Debit
		entry.Lines[i] = l
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

func entryNumber(at time.Time, settlementID uuid.UUID, leg int) string {
	return fmt.Sprintf("JE-%s-%s-%d", at.UTC().Format("20060102"), strings.ToUpper(settlementID.String()[:8]), leg)
}

func describe(d FlowDirection, reference string) string {
	desc := "Customer payment received"
	switch d {
	case FlowToAgent:
		desc = "Agent payment received"
	case FlowFromAgent:
		desc = "Payment to agent"
	}
	if reference != "" {
		desc += " (" + reference + ")"
	}
	return desc
}
