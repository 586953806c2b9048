package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccounts = ChartAccounts{
	CustomerReceivable: "1200",
	AgentReceivable:    "1210",
	AgentPayable:       "2100",
}

func postingFor(alloc Allocation, codes ...string) PostingContext {
	pc := PostingContext{
		TenantID:     uuid.New(),
		SettlementID: uuid.New(),
		Reference:    "TXN-778",
		Accounts:     testAccounts,
		Legs:         make(map[uuid.UUID]LegPosting, len(alloc.Legs)),
		PostedAt:     time.Date(2026, 10, 5, 12, 0, 0, 0, time.UTC),
	}
	for i, leg := range alloc.Legs {
		pc.Legs[leg.BankAccountID] = LegPosting{
			PaymentID:         uuid.New(),
			LedgerAccountCode: codes[i],
			Currency:          valueobject.USD,
			Amount:            leg.Amount,
			BaseAmount:        leg.Amount.Mul(d("2500")),
		}
	}
	return pc
}

func TestPost_IncomingPayment(t *testing.T) {
	inv := newTestInvoice(t, "100", "0", FlowToCustomer)
	alloc := Allocate(inv, d("100"), []PaymentSplit{{BankAccountID: uuid.New(), Amount: d("100")}})
	pc := postingFor(alloc, "1010")

	entries, err := Post(alloc, pc)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.NoError(t, e.Validate())
	assert.Equal(t, inv.ID, e.InvoiceID)
	assert.Equal(t, pc.SettlementID, e.SettlementID)
	require.NotNil(t, e.PaymentID)
	assert.Equal(t, "JE-20261005-"+e.EntryNumber[12:20]+"-1", e.EntryNumber)
	assert.Contains(t, e.Description, "TXN-778")

	require.Len(t, e.Lines, 2)
	assert.Equal(t, "1010", e.Lines[0].AccountCode)
	assert.True(t, e.Lines[0].Debit.Equal(d("100")))
	assert.Equal(t, "1200", e.Lines[1].AccountCode)
	assert.True(t, e.Lines[1].Credit.Equal(d("100")))
	assert.True(t, e.Lines[0].BaseAmount.Equal(d("250000")))
}

func TestPost_SplitOutgoingPayment(t *testing.T) {
	inv := newTestInvoice(t, "150", "0", FlowFromAgent)
	a, b := uuid.New(), uuid.New()
	alloc := Allocate(inv, d("150"), []PaymentSplit{
		{BankAccountID: a, Amount: d("100")},
		{BankAccountID: b, Amount: d("50")},
	})
	pc := postingFor(alloc, "1010", "1020")

	entries, err := Post(alloc, pc)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	wantBank := []string{"1010", "1020"}
	wantAmount := []string{"100", "50"}
	for i, e := range entries {
		require.NoError(t, e.Validate())
		assert.True(t, e.TotalDebit().Equal(e.TotalCredit()))
		assert.True(t, e.TotalDebit().Equal(d(wantAmount[i])))

		// payable debited, bank credited
		assert.Equal(t, "2100", e.Lines[0].AccountCode)
		assert.True(t, e.Lines[0].Debit.IsPositive())
		assert.Equal(t, wantBank[i], e.Lines[1].AccountCode)
		assert.True(t, e.Lines[1].Credit.IsPositive())
	}
	assert.NotEqual(t, entries[0].EntryNumber, entries[1].EntryNumber)
	assert.Contains(t, entries[0].Description, "Payment to agent")
}

func TestPost_AgentReceivable(t *testing.T) {
	inv := newTestInvoice(t, "80", "0", FlowToAgent)
	alloc := Allocate(inv, d("80"), []PaymentSplit{{BankAccountID: uuid.New(), Amount: d("80")}})

	entries, err := Post(alloc, postingFor(alloc, "1010"))
	require.NoError(t, err)
	assert.Equal(t, "1210", entries[0].Lines[1].AccountCode)
}

func TestPost_MissingLegData(t *testing.T) {
	inv := newTestInvoice(t, "100", "0", FlowToCustomer)
	alloc := Allocate(inv, d("100"), []PaymentSplit{{BankAccountID: uuid.New(), Amount: d("100")}})
	pc := postingFor(alloc, "1010")
	pc.Legs = map[uuid.UUID]LegPosting{}

	_, err := Post(alloc, pc)
	assert.ErrorIs(t, err, ErrUnbalancedEntry)
}

func TestPost_NoLegs(t *testing.T) {
	inv := newTestInvoice(t, "100", "0", FlowToCustomer)
	alloc := Allocate(inv, d("100"), nil)

	entries, err := Post(alloc, postingFor(alloc))
	assert.ErrorIs(t, err, ErrMissingLedgerLeg)
	assert.ErrorIs(t, err, ErrUnbalancedEntry)
	assert.Empty(t, entries)
}

func TestPost_MissingCounterAccount(t *testing.T) {
	inv := newTestInvoice(t, "100", "0", FlowFromAgent)
	alloc := Allocate(inv, d("100"), []PaymentSplit{{BankAccountID: uuid.New(), Amount: d("100")}})
	pc := postingFor(alloc, "1010")
	pc.Accounts.AgentPayable = ""

	_, err := Post(alloc, pc)
	assert.ErrorIs(t, err, ErrUnbalancedEntry)
}

func TestJournalEntry_Validate(t *testing.T) {
	line := func(code, debit, credit string) JournalLine {
		return JournalLine{AccountCode: code, Debit: d(debit), Credit: d(credit)}
	}

	tests := []struct {
		name  string
		lines []JournalLine
		ok    bool
	}{
		{name: "balanced", lines: []JournalLine{line("1010", "10", "0"), line("1200", "0", "10")}, ok: true},
		{name: "unbalanced", lines: []JournalLine{line("1010", "10", "0"), line("1200", "0", "9")}},
		{name: "single line", lines: []JournalLine{line("1010", "10", "0")}},
		{name: "both sides on one line", lines: []JournalLine{line("1010", "10", "10"), line("1200", "0", "0")}},
		{name: "negative amount", lines: []JournalLine{line("1010", "-10", "0"), line("1200", "0", "-10")}},
		{name: "missing account", lines: []JournalLine{line("", "10", "0"), line("1200", "0", "10")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &JournalEntry{EntryNumber: "JE-TEST", Lines: tt.lines}
			err := e.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrUnbalancedEntry)
		})
	}
}

func TestReverse(t *testing.T) {
	inv := newTestInvoice(t, "100", "0", FlowToCustomer)
	alloc := Allocate(inv, d("100"), []PaymentSplit{{BankAccountID: uuid.New(), Amount: d("100")}})
	entries, err := Post(alloc, postingFor(alloc, "1010"))
	require.NoError(t, err)
	original := entries[0]

	by := uuid.New()
	at := time.Date(2026, 10, 6, 0, 0, 0, 0, time.UTC)
	rev, err := Reverse(original, &by, at, "bounced")
	require.NoError(t, err)

	require.NotNil(t, rev.ReversesEntryID)
	assert.Equal(t, original.ID, *rev.ReversesEntryID)
	assert.Equal(t, original.EntryNumber+"-R", rev.EntryNumber)
	assert.Equal(t, original.PaymentID, rev.PaymentID)
	assert.Contains(t, rev.Description, "bounced")
	for i := range original.Lines {
		assert.True(t, rev.Lines[i].Debit.Equal(original.Lines[i].Credit))
		assert.True(t, rev.Lines[i].Credit.Equal(original.Lines[i].Debit))
		assert.NotEqual(t, original.Lines[i].ID, rev.Lines[i].ID)
	}
}

func TestJournalEntry_MarkExported(t *testing.T) {
	e := &JournalEntry{}
	at := time.Now()
	e.MarkExported(at)
	require.NotNil(t, e.ExportedAt)
	assert.Equal(t, at, *e.ExportedAt)
}

func TestNewJournalEntryPostedEvent(t *testing.T) {
	inv := newTestInvoice(t, "100", "0", FlowToCustomer)
	alloc := Allocate(inv, d("100"), []PaymentSplit{{BankAccountID: uuid.New(), Amount: d("100")}})
	entries, err := Post(alloc, postingFor(alloc, "1010"))
	require.NoError(t, err)

	evt := NewJournalEntryPostedEvent(entries[0])
	assert.Equal(t, EventJournalEntryPosted, evt.EventType())
	assert.Equal(t, entries[0].ID, evt.AggregateID())
	var _ shared.DomainEvent = evt
}
