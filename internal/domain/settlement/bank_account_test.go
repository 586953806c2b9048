package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBankAccount(t *testing.T) {
	acct, err := NewBankAccount(testActor(), "CRDB Operating", "0150-22", "tzs", "1010", d("500000"))
	require.NoError(t, err)
	assert.Equal(t, "TZS", acct.Currency.String())
	assert.True(t, acct.Balance.Equal(d("500000")))

	_, err = NewBankAccount(testActor(), "", "1", "TZS", "1010", d("0"))
	assert.Error(t, err)
	_, err = NewBankAccount(testActor(), "Cash", "1", "TZS", " ", d("0"))
	assert.Error(t, err)
	_, err = NewBankAccount(testActor(), "Cash", "1", "shillings", "1010", d("0"))
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestBankAccount_ApplyDelta(t *testing.T) {
	acct, err := NewBankAccount(testActor(), "Cash", "", "USD", "1000", d("0"))
	require.NoError(t, err)

	acct.ApplyDelta(d("100"), time.Now())
	acct.ApplyDelta(d("-150"), time.Now())

	// no overdraft rule
	assert.True(t, acct.Balance.Equal(d("-50")))
	assert.Equal(t, 3, acct.Version)
}

func TestBankAccount_Recalculate(t *testing.T) {
	acct, err := NewBankAccount(testActor(), "Cash", "", "USD", "1000", d("20"))
	require.NoError(t, err)
	acct.ApplyDelta(d("100"), time.Now())
	acct.Balance = acct.Balance.Add(d("5")) // drifted

	at := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	result := acct.Recalculate(LedgerTotals{Debit: d("100"), Credit: d("0")}, at)

	assert.True(t, result.PreviousBalance.Equal(d("125")))
	assert.True(t, result.RecalculatedBalance.Equal(d("120")))
	assert.True(t, result.Drift.Equal(d("5")))
	assert.True(t, result.HasDrift())
	assert.True(t, acct.Balance.Equal(d("120")))
	require.NotNil(t, acct.LastReconciledAt)
	assert.Equal(t, at, *acct.LastReconciledAt)

	again := acct.Recalculate(LedgerTotals{Debit: d("100"), Credit: d("0")}, at)
	assert.False(t, again.HasDrift())
}
