package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
)

var hundred = decimal.NewFromInt(100)

// ChargeRate holds the shipping tariff for one region and product category
type ChargeRate struct {
	ID                    uuid.UUID
	TenantID              uuid.UUID
	Region                string
	Category              string
	Currency              valueobject.Currency
	RatePerKg             decimal.Decimal
	DutyPercentage        decimal.Decimal
	HandlingFeePercentage decimal.Decimal
	MarkupPercentage      decimal.Decimal
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewChargeRate validates and builds a charge rate
func NewChargeRate(
	tenantID uuid.UUID,
	region, category string,
	currency valueobject.Currency,
	ratePerKg, duty, handling, markup decimal.Decimal,
) (*ChargeRate, error) {
	region = strings.TrimSpace(region)
	category = strings.TrimSpace(category)
	if region == "" || category == "" {
		return nil, shared.NewDomainError("INVALID_CHARGE_RATE", "Region and category are required")
	}
	if !currency.IsValid() {
		return nil, ErrInvalidCurrency
	}
	now := time.Now()
	rate := &ChargeRate{
		ID:                    uuid.New(),
		TenantID:              tenantID,
		Region:                strings.ToLower(region),
		Category:              strings.ToLower(category),
		Currency:              currency,
		RatePerKg:             ratePerKg,
		DutyPercentage:        duty,
		HandlingFeePercentage: handling,
		MarkupPercentage:      markup,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	return rate, nil
}

// Validate rejects negative tariffs
func (r ChargeRate) Validate() error {
	for _, v := range []decimal.Decimal{r.RatePerKg, r.DutyPercentage, r.HandlingFeePercentage, r.MarkupPercentage} {
		if v.IsNegative() {
			return ErrNegativeRate
		}
	}
	return nil
}

// LineKind identifies a component of a charge breakdown
type LineKind string

const (
	LineProduct  LineKind = "product"
	LineShipping LineKind = "shipping"
	LineDuty     LineKind = "duty"
	LineHandling LineKind = "handling"
	LineExtra    LineKind = "extra"
	LineMarkup   LineKind = "markup"
)

// LineItem is one row of a charge breakdown
type LineItem struct {
	Kind            LineKind
	Label           string
	Amount          decimal.Decimal
	PercentageBased bool
	Percentage      decimal.Decimal
}

// ExtraCharge is an additional line supplied by the caller, either a fixed
// amount or a percentage of the non-percentage subtotal.
type ExtraCharge struct {
	Label           string
	Amount          decimal.Decimal
	Percentage      decimal.Decimal
	PercentageBased bool
}

// Breakdown is the itemized result of a charge calculation. Amounts are
// unrounded; use Rounded for display.
type Breakdown struct {
	Currency valueobject.Currency
	Lines    []LineItem
	Subtotal decimal.Decimal
	Markup   decimal.Decimal
	Total    decimal.Decimal
}

// Line returns the first line of the given kind
func (b Breakdown) Line(kind LineKind) (LineItem, bool) {
	for _, l := range b.Lines {
		if l.Kind == kind {
			return l, true
		}
	}
	return LineItem{}, false
}

// Sum adds every line amount
func (b Breakdown) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range b.Lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

// Rounded returns a copy with every line rounded for display. Total is the
// sum of the rounded lines so the displayed breakdown always adds up; it can
// differ from the exact total by the accumulated rounding.
func (b Breakdown) Rounded(places int32) Breakdown {
	out := Breakdown{
		Currency: b.Currency,
		Lines:    make([]LineItem, len(b.Lines)),
		Markup:   b.Markup.Round(places),
		Total:    decimal.Zero,
	}
	for i, l := range b.Lines {
		l.Amount = l.Amount.Round(places)
		out.Lines[i] = l
		out.Total = out.Total.Add(l.Amount)
		if l.Kind == LineMarkup {
			out.Markup = l.Amount
		}
	}
	out.Subtotal = out.Total.Sub(out.Markup)
	return out
}

// RoundBaseTotal rounds a base-currency total, whole units by default
func RoundBaseTotal(total decimal.Decimal, places int32) decimal.Decimal {
	return total.Round(places)
}

// Calculate prices a product shipment:
//
//	shipping = weight × rate_per_kg
//	duty     = cost × duty%
//	handling = (cost + shipping) × handling%
//	subtotal = cost + shipping + duty + handling
//	markup   = subtotal × markup%   (line omitted when markup% is 0)
//	total    = subtotal + markup
func Calculate(productCost, weightKg decimal.Decimal, rate ChargeRate) (Breakdown, error) {
	return CalculateWithExtras(productCost, weightKg, rate, nil)
}

// CalculateWithExtras prices a shipment with additional line items.
// Percentage extras use the non-percentage subtotal (product, shipping and
// fixed extras) as their base so they never compound on each other.
func CalculateWithExtras(productCost, weightKg decimal.Decimal, rate ChargeRate, extras []ExtraCharge) (Breakdown, error) {
	if productCost.IsNegative() {
		return Breakdown{}, ErrNegativeAmount
	}
	if weightKg.IsNegative() {
		return Breakdown{}, ErrNegativeWeight
	}
	if err := rate.Validate(); err != nil {
		return Breakdown{}, err
	}
	for _, e := range extras {
		if e.Amount.IsNegative() || e.Percentage.IsNegative() {
			return Breakdown{}, ErrNegativeRate
		}
	}

	shipping := weightKg.Mul(rate.RatePerKg)
	duty := productCost.Mul(rate.DutyPercentage).Div(hundred)
	handling := productCost.Add(shipping).Mul(rate.HandlingFeePercentage).Div(hundred)

	lines := []LineItem{
		{Kind: LineProduct, Label: "Product cost", Amount: productCost},
		{Kind: LineShipping, Label: "Shipping", Amount: shipping},
		{Kind: LineDuty, Label: "Duty", Amount: duty, PercentageBased: true, Percentage: rate.DutyPercentage},
		{Kind: LineHandling, Label: "Handling", Amount: handling, PercentageBased: true, Percentage: rate.HandlingFeePercentage},
	}

	base := productCost.Add(shipping)
	for _, e := range extras {
		if !e.PercentageBased {
			base = base.Add(e.Amount)
		}
	}
	for _, e := range extras {
		item := LineItem{Kind: LineExtra, Label: e.Label, Amount: e.Amount}
		if e.PercentageBased {
			item.PercentageBased = true
			item.Percentage = e.Percentage
			item.Amount = base.Mul(e.Percentage).Div(hundred)
		}
		lines = append(lines, item)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount)
	}

	markup := decimal.Zero
	if !rate.MarkupPercentage.IsZero() {
		markup = subtotal.Mul(rate.MarkupPercentage).Div(hundred)
		lines = append(lines, LineItem{
			Kind:            LineMarkup,
			Label:           "Markup",
			Amount:          markup,
			PercentageBased: true,
			Percentage:      rate.MarkupPercentage,
		})
	}

	return Breakdown{
		Currency: rate.Currency,
		Lines:    lines,
		Subtotal: subtotal,
		Markup:   markup,
		Total:    subtotal.Add(markup),
	}, nil
}
