package settlement

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
)

// ExchangeRate is one row of a tenant's rate snapshot:
// 1 unit of Currency equals RateToBase units of the base currency.
type ExchangeRate struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Currency   valueobject.Currency
	RateToBase decimal.Decimal
	AsOf       time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewExchangeRate validates and builds a rate row
func NewExchangeRate(tenantID uuid.UUID, currency string, rateToBase decimal.Decimal, asOf time.Time) (*ExchangeRate, error) {
	code, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, ErrInvalidCurrency
	}
	if !rateToBase.IsPositive() {
		return nil, shared.NewDomainError("INVALID_RATE", "Exchange rate for "+code.String()+" must be positive")
	}
	now := time.Now()
	return &ExchangeRate{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Currency:   code,
		RateToBase: rateToBase,
		AsOf:       asOf,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// RateTable is a read-only snapshot of exchange rates against a base currency
type RateTable struct {
	base  valueobject.Currency
	rates map[valueobject.Currency]decimal.Decimal
	asOf  time.Time
}

// NewRateTable builds a snapshot. Rates must be positive.
func NewRateTable(base valueobject.Currency, rates map[valueobject.Currency]decimal.Decimal, asOf time.Time) (RateTable, error) {
	if !base.IsValid() {
		return RateTable{}, ErrInvalidCurrency
	}
	table := RateTable{
		base:  base,
		rates: make(map[valueobject.Currency]decimal.Decimal, len(rates)),
		asOf:  asOf,
	}
	for code, rate := range rates {
		c := normalizeCurrency(code)
		if !c.IsValid() {
			return RateTable{}, ErrInvalidCurrency
		}
		if !rate.IsPositive() {
			return RateTable{}, shared.NewDomainError("INVALID_RATE", "Exchange rate for "+c.String()+" must be positive")
		}
		table.rates[c] = rate
	}
	return table, nil
}

// RateTableFromSnapshot builds a table from stored rows; AsOf is the newest row
func RateTableFromSnapshot(base valueobject.Currency, rows []ExchangeRate) (RateTable, error) {
	rates := make(map[valueobject.Currency]decimal.Decimal, len(rows))
	var asOf time.Time
	for _, r := range rows {
		rates[r.Currency] = r.RateToBase
		if r.AsOf.After(asOf) {
			asOf = r.AsOf
		}
	}
	return NewRateTable(base, rates, asOf)
}

// Base returns the base currency
func (t RateTable) Base() valueobject.Currency {
	return t.base
}

// AsOf returns when the snapshot was taken
func (t RateTable) AsOf() time.Time {
	return t.asOf
}

// Rate returns the rate-to-base for a currency. The base currency always has rate 1.
func (t RateTable) Rate(currency valueobject.Currency) (decimal.Decimal, bool) {
	c := normalizeCurrency(currency)
	if c == t.base {
		return decimal.NewFromInt(1), true
	}
	rate, ok := t.rates[c]
	return rate, ok
}

// Currencies returns the quoted currencies in sorted order
func (t RateTable) Currencies() []valueobject.Currency {
	out := make([]valueobject.Currency, 0, len(t.rates))
	for c := range t.rates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Conversion is the result of converting an amount between currencies.
// Degraded is set when a rate was missing and 1:1 was assumed instead.
type Conversion struct {
	Amount            decimal.Decimal
	From              valueobject.Currency
	To                valueobject.Currency
	Rate              decimal.Decimal
	Degraded          bool
	MissingCurrencies []valueobject.Currency
}

// Convert expresses amount in the table's base currency.
// A missing rate never fails: the amount is treated as already being in the
// base currency and the result is flagged as degraded.
func Convert(amount decimal.Decimal, from valueobject.Currency, table RateTable) Conversion {
	from = normalizeCurrency(from)
	result := Conversion{From: from, To: table.base}

	rate, ok := table.Rate(from)
	if !ok {
		result.Rate = decimal.NewFromInt(1)
		result.Amount = amount
		result.Degraded = true
		result.MissingCurrencies = []valueobject.Currency{from}
		return result
	}
	result.Rate = rate
	result.Amount = amount.Mul(rate)
	return result
}

// ConvertBetween converts through the base currency.
// Either missing leg degrades to 1:1 for that leg.
func ConvertBetween(amount decimal.Decimal, from, to valueobject.Currency, table RateTable) Conversion {
	from = normalizeCurrency(from)
	to = normalizeCurrency(to)
	if from == to {
		return Conversion{Amount: amount, From: from, To: to, Rate: decimal.NewFromInt(1)}
	}

	toBase := Convert(amount, from, table)
	if to == table.base {
		return toBase
	}

	result := Conversion{
		From:              from,
		To:                to,
		Degraded:          toBase.Degraded,
		MissingCurrencies: toBase.MissingCurrencies,
	}
	toRate, ok := table.Rate(to)
	if !ok {
		result.Degraded = true
		result.MissingCurrencies = append(result.MissingCurrencies, to)
		toRate = decimal.NewFromInt(1)
	}
	result.Amount = toBase.Amount.Div(toRate)
	result.Rate = toBase.Rate.Div(toRate)
	return result
}

func normalizeCurrency(c valueobject.Currency) valueobject.Currency {
	return valueobject.Currency(strings.ToUpper(strings.TrimSpace(string(c))))
}
