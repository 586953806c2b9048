package settlement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRateTable(t *testing.T) RateTable {
	t.Helper()
	table, err := NewRateTable(valueobject.TZS, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: d("2500"),
		valueobject.CNY: d("350"),
	}, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return table
}

func TestConvert(t *testing.T) {
	table := testRateTable(t)

	tests := []struct {
		name         string
		amount       string
		from         valueobject.Currency
		wantAmount   string
		wantRate     string
		wantDegraded bool
	}{
		{name: "known currency", amount: "100", from: valueobject.USD, wantAmount: "250000", wantRate: "2500"},
		{name: "lower case code", amount: "2", from: "cny", wantAmount: "700", wantRate: "350"},
		{name: "base currency is a no-op", amount: "123.45", from: valueobject.TZS, wantAmount: "123.45", wantRate: "1"},
		{name: "missing rate falls back to one", amount: "80", from: valueobject.EUR, wantAmount: "80", wantRate: "1", wantDegraded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(d(tt.amount), tt.from, table)
			assert.True(t, got.Amount.Equal(d(tt.wantAmount)), "amount %s", got.Amount)
			assert.True(t, got.Rate.Equal(d(tt.wantRate)), "rate %s", got.Rate)
			assert.Equal(t, tt.wantDegraded, got.Degraded)
			assert.Equal(t, valueobject.TZS, got.To)
			if tt.wantDegraded {
				assert.Equal(t, []valueobject.Currency{tt.from}, got.MissingCurrencies)
			} else {
				assert.Empty(t, got.MissingCurrencies)
			}
		})
	}
}

func TestConvertBetween(t *testing.T) {
	table := testRateTable(t)

	t.Run("same currency", func(t *testing.T) {
		got := ConvertBetween(d("40"), valueobject.USD, "usd", table)
		assert.True(t, got.Amount.Equal(d("40")))
		assert.False(t, got.Degraded)
	})

	t.Run("through base", func(t *testing.T) {
		got := ConvertBetween(d("100"), valueobject.USD, valueobject.CNY, table)
		assert.Equal(t, "714.29", got.Amount.StringFixed(2))
		assert.False(t, got.Degraded)
	})

	t.Run("into base", func(t *testing.T) {
		got := ConvertBetween(d("1"), valueobject.USD, valueobject.TZS, table)
		assert.True(t, got.Amount.Equal(d("2500")))
	})

	t.Run("missing target degrades", func(t *testing.T) {
		got := ConvertBetween(d("10"), valueobject.USD, valueobject.EUR, table)
		assert.True(t, got.Degraded)
		assert.True(t, got.Amount.Equal(d("25000")))
		assert.Equal(t, []valueobject.Currency{valueobject.EUR}, got.MissingCurrencies)
	})

	t.Run("both legs missing", func(t *testing.T) {
		got := ConvertBetween(d("10"), valueobject.GBP, valueobject.EUR, table)
		assert.True(t, got.Degraded)
		assert.Len(t, got.MissingCurrencies, 2)
		assert.True(t, got.Amount.Equal(d("10")))
	})
}

func TestNewRateTable_RejectsBadRates(t *testing.T) {
	_, err := NewRateTable(valueobject.TZS, map[valueobject.Currency]decimal.Decimal{valueobject.USD: d("0")}, time.Now())
	assert.Error(t, err)

	_, err = NewRateTable(valueobject.TZS, map[valueobject.Currency]decimal.Decimal{valueobject.USD: d("-1")}, time.Now())
	assert.Error(t, err)

	_, err = NewRateTable("tz", nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestRateTableFromSnapshot(t *testing.T) {
	older := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	usd, err := NewExchangeRate(testActor().TenantID, "usd", d("2500"), older)
	require.NoError(t, err)
	eur, err := NewExchangeRate(testActor().TenantID, "EUR", d("2700"), newer)
	require.NoError(t, err)

	table, err := RateTableFromSnapshot(valueobject.TZS, []ExchangeRate{*usd, *eur})
	require.NoError(t, err)

	assert.Equal(t, newer, table.AsOf())
	assert.Equal(t, []valueobject.Currency{valueobject.EUR, valueobject.USD}, table.Currencies())
	rate, ok := table.Rate(valueobject.EUR)
	assert.True(t, ok)
	assert.True(t, rate.Equal(d("2700")))
}

func TestNewExchangeRate_Validation(t *testing.T) {
	_, err := NewExchangeRate(testActor().TenantID, "dollars", d("1"), time.Now())
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = NewExchangeRate(testActor().TenantID, "USD", d("-5"), time.Now())
	assert.Error(t, err)
}
