package settlement

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
)

// BankAccount is a cash or bank account backed by one ledger account.
// Balance moves additively with each payment leg and is only recomputed
// from ledger lines during reconciliation.
type BankAccount struct {
	shared.TenantAggregateRoot
	Name              string
	AccountNumber     string
	Currency          valueobject.Currency
	LedgerAccountCode string
	OpeningBalance    decimal.Decimal
	Balance           decimal.Decimal
	LastReconciledAt  *time.Time
}

// NewBankAccount creates a bank account with an opening balance
func NewBankAccount(actor shared.Actor, name, accountNumber, currency, ledgerAccountCode string, openingBalance decimal.Decimal) (*BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank account name is required")
	}
	code := strings.TrimSpace(ledgerAccountCode)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_LEDGER_ACCOUNT", "Ledger account code is required")
	}
	c, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, ErrInvalidCurrency
	}
	return &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRootFor(actor),
		Name:                name,
		AccountNumber:       strings.TrimSpace(accountNumber),
		Currency:            c,
		LedgerAccountCode:   code,
		OpeningBalance:      openingBalance,
		Balance:             openingBalance,
	}, nil
}

// ApplyDelta adds a signed amount to the running balance
func (b *BankAccount) ApplyDelta(delta decimal.Decimal, at time.Time) {
	b.Balance = b.Balance.Add(delta)
	b.UpdatedAt = at
	b.IncrementVersion()
}

// BalanceMoney returns the running balance in the account currency
func (b *BankAccount) BalanceMoney() valueobject.Money {
	return valueobject.NewMoney(b.Balance, b.Currency)
}

// LedgerTotals are the summed debit and credit lines of one ledger account
type LedgerTotals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debits minus credits
func (t LedgerTotals) Net() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// Recalculation reports the outcome of rebuilding a balance from the ledger
type Recalculation struct {
	PreviousBalance     decimal.Decimal
	RecalculatedBalance decimal.Decimal
	Drift               decimal.Decimal
}

// HasDrift reports whether the running balance disagreed with the ledger
func (r Recalculation) HasDrift() bool {
	return !r.Drift.IsZero()
}

// Recalculate replaces the running balance with opening balance plus the
// net of the account's ledger lines. Bank accounts are assets, so debits
// increase the balance.
func (b *BankAccount) Recalculate(totals LedgerTotals, at time.Time) Recalculation {
	recalculated := b.OpeningBalance.Add(totals.Net())
	result := Recalculation{
		PreviousBalance:     b.Balance,
		RecalculatedBalance: recalculated,
		Drift:               b.Balance.Sub(recalculated),
	}
	reconciledAt := at
	b.Balance = recalculated
	b.LastReconciledAt = &reconciledAt
	b.UpdatedAt = at
	b.IncrementVersion()
	return result
}
