package settlement

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PermissionQuoteCreate allows pricing shipments
const PermissionQuoteCreate = "quote:create"

// displayPlaces is the precision of amounts shown to customers
const displayPlaces = 2

// RateTableProvider returns the tenant's current rate snapshot
type RateTableProvider interface {
	GetRateTable(ctx context.Context, actor shared.Actor) (settlement.RateTable, error)
}

// QuoteService prices shipments across sourcing regions
type QuoteService struct {
	chargeRepo settlement.ChargeRateRepository
	rates      RateTableProvider
	settings   Settings
	opts       options
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(chargeRepo settlement.ChargeRateRepository, rates RateTableProvider, settings Settings, opts ...Option) *QuoteService {
	return &QuoteService{
		chargeRepo: chargeRepo,
		rates:      rates,
		settings:   settings,
		opts:       buildOptions(opts),
	}
}

// pricedRegion is an unrounded breakdown for one region
type pricedRegion struct {
	breakdown  settlement.Breakdown
	baseTotal  decimal.Decimal
	conversion *degradedTracker
}

// Quote prices the shipment in every requested region. A region without a
// configured charge rate is reported as unavailable instead of failing the
// whole quote.
func (s *QuoteService) Quote(ctx context.Context, actor shared.Actor, req QuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "calculate")
	defer span.End()

	if err := actor.Require(PermissionQuoteCreate); err != nil {
		return nil, err
	}
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, settlement.ErrInvalidCurrency
	}
	if len(req.Regions) == 0 {
		return nil, shared.NewDomainError("INVALID_REGION", "At least one region is required")
	}
	table, err := s.rates.GetRateTable(ctx, actor)
	if err != nil {
		return nil, err
	}

	resp := &QuoteResponse{
		BaseCurrency: table.Base().String(),
		RatesAsOf:    table.AsOf(),
		Regions:      make([]RegionQuote, 0, len(req.Regions)),
	}
	var cheapest *RegionQuote
	for _, region := range req.Regions {
		rq := RegionQuote{Region: strings.ToLower(strings.TrimSpace(region))}
		priced, err := s.priceRegion(ctx, actor, table, rq.Region, req.Category, req.ProductCost, currency, req.WeightKg, req.Extras)
		if err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				telemetry.RecordError(span, err)
				return nil, err
			}
			// validation errors apply to every region alike
			if domainErr.Code != settlement.ErrChargeRateNotFound.Code {
				return nil, err
			}
			rq.Error = domainErr.Code
			resp.Regions = append(resp.Regions, rq)
			continue
		}

		rounded := priced.breakdown.Rounded(displayPlaces)
		rq.Available = true
		rq.Currency = rounded.Currency.String()
		rq.Lines = toLineResponses(rounded.Lines)
		rq.Subtotal = rounded.Subtotal
		rq.Markup = rounded.Markup
		rq.Total = rounded.Total
		rq.BaseTotal = priced.baseTotal
		rq.Degraded = priced.conversion.degraded
		rq.MissingRate = priced.conversion.missingList()
		resp.Regions = append(resp.Regions, rq)
	}

	for i := range resp.Regions {
		r := &resp.Regions[i]
		if r.Available && (cheapest == nil || r.BaseTotal.LessThan(cheapest.BaseTotal)) {
			cheapest = r
		}
	}
	if cheapest != nil {
		resp.CheapestRegion = cheapest.Region
	}

	for _, r := range resp.Regions {
		if r.Degraded {
			s.opts.logger.Warn("quote used 1:1 fallback for missing exchange rates",
				zap.String("region", r.Region),
				zap.Strings("missing_currencies", r.MissingRate),
			)
		}
	}
	return resp, nil
}

// priceRegion converts the product cost into the tariff currency, runs the
// charge calculator and expresses the total in base currency.
func (s *QuoteService) priceRegion(
	ctx context.Context,
	actor shared.Actor,
	table settlement.RateTable,
	region, category string,
	productCost decimal.Decimal,
	currency valueobject.Currency,
	weightKg decimal.Decimal,
	extras []ExtraRequest,
) (*pricedRegion, error) {
	rate, err := s.chargeRepo.Find(ctx, actor.TenantID, region, strings.ToLower(strings.TrimSpace(category)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, settlement.ErrChargeRateNotFound
		}
		return nil, err
	}

	cost := settlement.ConvertBetween(productCost, currency, rate.Currency, table)
	tracker := newDegradedTracker(cost)

	charges := make([]settlement.ExtraCharge, 0, len(extras))
	for _, e := range extras {
		if e.Percentage != nil {
			charges = append(charges, settlement.ExtraCharge{Label: e.Label, Percentage: *e.Percentage, PercentageBased: true})
			continue
		}
		fixed := settlement.ConvertBetween(e.Amount, currency, rate.Currency, table)
		tracker.add(fixed)
		charges = append(charges, settlement.ExtraCharge{Label: e.Label, Amount: fixed.Amount})
	}

	breakdown, err := settlement.CalculateWithExtras(cost.Amount, weightKg, *rate, charges)
	if err != nil {
		return nil, err
	}

	base := settlement.Convert(breakdown.Total, rate.Currency, table)
	tracker.add(base)
	return &pricedRegion{
		breakdown:  breakdown,
		baseTotal:  settlement.RoundBaseTotal(base.Amount, s.settings.BaseRoundingPlaces),
		conversion: tracker,
	}, nil
}

func toLineResponses(lines []settlement.LineItem) []LineResponse {
	out := make([]LineResponse, len(lines))
	for i, l := range lines {
		out[i] = LineResponse{Kind: string(l.Kind), Label: l.Label, Amount: l.Amount}
		if l.PercentageBased {
			pct := l.Percentage
			out[i].Percentage = &pct
		}
	}
	return out
}
