package settlement

import (
	"fmt"
	"time"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Settings carries tenant-independent settlement configuration
type Settings struct {
	BaseCurrency       valueobject.Currency
	BaseRoundingPlaces int32
	Accounts           settlement.ChartAccounts
	IdempotencyTTL     time.Duration
	// LedgerExportGrace is how long a posted entry may wait for export
	// before reconciliation reports it
	LedgerExportGrace time.Duration
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		BaseCurrency:       valueobject.DefaultCurrency,
		BaseRoundingPlaces: 0,
		Accounts: settlement.ChartAccounts{
			CustomerReceivable: "1200",
			AgentReceivable:    "1210",
			AgentPayable:       "2100",
		},
		IdempotencyTTL:    24 * time.Hour,
		LedgerExportGrace: 5 * time.Minute,
	}
}

// SettingsFromConfig maps the settlement config section onto Settings
func SettingsFromConfig(cfg config.SettlementConfig) (Settings, error) {
	base, err := valueobject.ParseCurrency(cfg.BaseCurrency)
	if err != nil {
		return Settings{}, fmt.Errorf("settlement.base_currency: %w", err)
	}
	s := DefaultSettings()
	s.BaseCurrency = base
	s.BaseRoundingPlaces = cfg.BaseRoundingPlaces
	if cfg.CustomerReceivable != "" {
		s.Accounts.CustomerReceivable = cfg.CustomerReceivable
	}
	if cfg.AgentReceivable != "" {
		s.Accounts.AgentReceivable = cfg.AgentReceivable
	}
	if cfg.AgentPayable != "" {
		s.Accounts.AgentPayable = cfg.AgentPayable
	}
	if cfg.IdempotencyTTL > 0 {
		s.IdempotencyTTL = cfg.IdempotencyTTL
	}
	if cfg.LedgerExportGrace > 0 {
		s.LedgerExportGrace = cfg.LedgerExportGrace
	}
	return s, nil
}

// Option configures optional collaborators of the settlement services
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *telemetry.BusinessMetrics
	now     func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records settlement metrics
func WithMetrics(metrics *telemetry.BusinessMetrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
