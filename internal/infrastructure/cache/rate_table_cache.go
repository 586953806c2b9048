package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
)

const (
	defaultRateKeyPrefix = "astra:rates:"
	defaultRateTTL       = 10 * time.Minute
)

// cachedRate is the JSON shape stored in Redis
type cachedRate struct {
	ID         uuid.UUID       `json:"id"`
	Currency   string          `json:"currency"`
	RateToBase decimal.Decimal `json:"rate_to_base"`
	AsOf       time.Time       `json:"as_of"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func encodeRates(rates []settlement.ExchangeRate) ([]byte, error) {
	rows := make([]cachedRate, len(rates))
	for i, r := range rates {
		rows[i] = cachedRate{
			ID:         r.ID,
			Currency:   r.Currency.String(),
			RateToBase: r.RateToBase,
			AsOf:       r.AsOf,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return json.Marshal(rows)
}

func decodeRates(tenantID uuid.UUID, data []byte) ([]settlement.ExchangeRate, error) {
	var rows []cachedRate
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	rates := make([]settlement.ExchangeRate, len(rows))
	for i, r := range rows {
		rates[i] = settlement.ExchangeRate{
			ID:         r.ID,
			TenantID:   tenantID,
			Currency:   valueobject.Currency(r.Currency),
			RateToBase: r.RateToBase,
			AsOf:       r.AsOf,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return rates, nil
}

// RedisRateTableCache stores each tenant's exchange rate snapshot as one
// JSON value with a TTL
type RedisRateTableCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRateTableCache creates the cache; a non-positive ttl uses ten minutes
func NewRedisRateTableCache(client redis.UniversalClient, ttl time.Duration) *RedisRateTableCache {
	if ttl <= 0 {
		ttl = defaultRateTTL
	}
	return &RedisRateTableCache{client: client, keyPrefix: defaultRateKeyPrefix, ttl: ttl}
}

func (c *RedisRateTableCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

// Get returns the cached snapshot; ok is false on a miss
func (c *RedisRateTableCache) Get(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, bool, error) {
	data, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rate table: %w", err)
	}
	rates, err := decodeRates(tenantID, data)
	if err != nil {
		// a corrupt value is a miss; the next Set overwrites it
		return nil, false, nil
	}
	return rates, true, nil
}

// Set stores the snapshot
func (c *RedisRateTableCache) Set(ctx context.Context, tenantID uuid.UUID, rates []settlement.ExchangeRate) error {
	data, err := encodeRates(rates)
	if err != nil {
		return fmt.Errorf("failed to encode rate table: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rate table: %w", err)
	}
	return nil
}

// Invalidate removes the snapshot
func (c *RedisRateTableCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate rate table: %w", err)
	}
	return nil
}
