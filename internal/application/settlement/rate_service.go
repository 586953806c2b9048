package settlement

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Rate permissions
const (
	PermissionRateRead   = "rate:read"
	PermissionRateManage = "rate:manage"
)

// RateTableCache caches a tenant's rate snapshot between upserts
type RateTableCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, rates []settlement.ExchangeRate) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// RateService manages exchange rate snapshots and charge rates
type RateService struct {
	rateRepo   settlement.ExchangeRateRepository
	chargeRepo settlement.ChargeRateRepository
	cache      RateTableCache
	settings   Settings
	opts       options
}

// NewRateService creates a new RateService. cache may be nil.
func NewRateService(
	rateRepo settlement.ExchangeRateRepository,
	chargeRepo settlement.ChargeRateRepository,
	cache RateTableCache,
	settings Settings,
	opts ...Option,
) *RateService {
	return &RateService{
		rateRepo:   rateRepo,
		chargeRepo: chargeRepo,
		cache:      cache,
		settings:   settings,
		opts:       buildOptions(opts),
	}
}

// GetRateTable returns the tenant's current rate snapshot, served from cache when possible
func (s *RateService) GetRateTable(ctx context.Context, actor shared.Actor) (settlement.RateTable, error) {
	if err := actor.Validate(); err != nil {
		return settlement.RateTable{}, err
	}
	rows, err := s.loadRates(ctx, actor.TenantID)
	if err != nil {
		return settlement.RateTable{}, err
	}
	return settlement.RateTableFromSnapshot(s.settings.BaseCurrency, rows)
}

func (s *RateService) loadRates(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, error) {
	if s.cache != nil {
		rows, ok, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.opts.logger.Warn("rate cache read failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		} else if ok {
			return rows, nil
		}
	}

	rows, err := s.rateRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, rows); err != nil {
			s.opts.logger.Warn("rate cache write failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		}
	}
	return rows, nil
}

// UpsertRates replaces the tenant's rate snapshot
func (s *RateService) UpsertRates(ctx context.Context, actor shared.Actor, req UpsertRatesRequest) (*RateTableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "upsert")
	defer span.End()

	if err := actor.Require(PermissionRateManage); err != nil {
		return nil, err
	}
	if len(req.Rates) == 0 {
		return nil, shared.NewDomainError("INVALID_RATE", "At least one rate is required")
	}

	asOf := s.opts.now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	seen := make(map[valueobject.Currency]struct{}, len(req.Rates))
	rates := make([]*settlement.ExchangeRate, 0, len(req.Rates))
	for _, r := range req.Rates {
		rate, err := settlement.NewExchangeRate(actor.TenantID, r.Currency, r.RateToBase, asOf)
		if err != nil {
			return nil, err
		}
		if rate.Currency == s.settings.BaseCurrency {
			return nil, shared.NewDomainError("INVALID_RATE", "The base currency rate is fixed at 1")
		}
		if _, dup := seen[rate.Currency]; dup {
			return nil, shared.NewDomainError("INVALID_RATE", "Duplicate rate for "+rate.Currency.String())
		}
		seen[rate.Currency] = struct{}{}
		rates = append(rates, rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Currency < rates[j].Currency })

	if err := s.rateRepo.ReplaceAll(ctx, actor.TenantID, rates); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save exchange rates: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, actor.TenantID); err != nil {
			s.opts.logger.Warn("rate cache invalidation failed", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		}
	}

	rows := make([]settlement.ExchangeRate, len(rates))
	for i, r := range rates {
		rows[i] = *r
	}
	table, err := settlement.RateTableFromSnapshot(s.settings.BaseCurrency, rows)
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("exchange rates replaced",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.Int("currencies", len(rates)),
		zap.Time("as_of", asOf),
	)
	resp := ToRateTableResponse(table)
	return &resp, nil
}

// UpsertChargeRate creates or replaces the tariff for a region and category
func (s *RateService) UpsertChargeRate(ctx context.Context, actor shared.Actor, req UpsertChargeRateRequest) (*ChargeRateResponse, error) {
	if err := actor.Require(PermissionRateManage); err != nil {
		return nil, err
	}
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, settlement.ErrInvalidCurrency
	}
	rate, err := settlement.NewChargeRate(
		actor.TenantID,
		req.Region, req.Category,
		currency,
		req.RatePerKg, req.DutyPercentage, req.HandlingFeePercentage, req.MarkupPercentage,
	)
	if err != nil {
		return nil, err
	}
	if err := s.chargeRepo.Upsert(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to save charge rate: %w", err)
	}
	resp := ToChargeRateResponse(rate)
	return &resp, nil
}

// ListChargeRates returns every tariff configured for the tenant
func (s *RateService) ListChargeRates(ctx context.Context, actor shared.Actor) ([]ChargeRateResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	rates, err := s.chargeRepo.FindAll(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ChargeRateResponse, len(rates))
	for i := range rates {
		out[i] = ToChargeRateResponse(&rates[i])
	}
	return out, nil
}
