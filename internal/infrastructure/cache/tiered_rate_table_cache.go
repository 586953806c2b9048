package cache

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"go.uber.org/zap"
)

// RateCache is one tier of the rate table cache
type RateCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, rates []settlement.ExchangeRate) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// RateInvalidator fans invalidations out to other instances
type RateInvalidator interface {
	Publish(ctx context.Context, tenantID uuid.UUID) error
	Subscribe(ctx context.Context, onInvalidate func(tenantID uuid.UUID)) error
}

// TieredCacheStats counts hits and misses per tier
type TieredCacheStats struct {
	L1Hits   int64 `json:"l1_hits"`
	L1Misses int64 `json:"l1_misses"`
	L2Hits   int64 `json:"l2_hits"`
	L2Misses int64 `json:"l2_misses"`
}

// TieredRateTableCache reads through a local tier into a shared tier.
// Invalidations clear both tiers here and are broadcast so other instances
// drop their local copy.
type TieredRateTableCache struct {
	l1          RateCache
	l2          RateCache
	invalidator RateInvalidator
	logger      *zap.Logger

	l1Hits, l1Misses atomic.Int64
	l2Hits, l2Misses atomic.Int64
}

// NewTieredRateTableCache combines the tiers; invalidator may be nil
func NewTieredRateTableCache(l1, l2 RateCache, invalidator RateInvalidator, logger *zap.Logger) *TieredRateTableCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredRateTableCache{l1: l1, l2: l2, invalidator: invalidator, logger: logger}
}

// Get checks L1, then L2, and backfills L1 on an L2 hit
func (c *TieredRateTableCache) Get(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, bool, error) {
	if rates, ok, _ := c.l1.Get(ctx, tenantID); ok {
		c.l1Hits.Add(1)
		return rates, true, nil
	}
	c.l1Misses.Add(1)

	rates, ok, err := c.l2.Get(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		c.l2Misses.Add(1)
		return nil, false, nil
	}
	c.l2Hits.Add(1)
	_ = c.l1.Set(ctx, tenantID, rates)
	return rates, true, nil
}

// Set writes both tiers
func (c *TieredRateTableCache) Set(ctx context.Context, tenantID uuid.UUID, rates []settlement.ExchangeRate) error {
	_ = c.l1.Set(ctx, tenantID, rates)
	return c.l2.Set(ctx, tenantID, rates)
}

// Invalidate clears both tiers and notifies the other instances
func (c *TieredRateTableCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	_ = c.l1.Invalidate(ctx, tenantID)
	if err := c.l2.Invalidate(ctx, tenantID); err != nil {
		return err
	}
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, tenantID); err != nil {
			c.logger.Warn("failed to broadcast rate invalidation",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// StartInvalidationSubscription blocks while applying remote invalidations
// to the local tier; run it in a goroutine
func (c *TieredRateTableCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func(tenantID uuid.UUID) {
		_ = c.l1.Invalidate(context.Background(), tenantID)
		c.logger.Debug("local rate table dropped", zap.String("tenant_id", tenantID.String()))
	})
}

// Stats returns a snapshot of the hit counters
func (c *TieredRateTableCache) Stats() TieredCacheStats {
	return TieredCacheStats{
		L1Hits:   c.l1Hits.Load(),
		L1Misses: c.l1Misses.Load(),
		L2Hits:   c.l2Hits.Load(),
		L2Misses: c.l2Misses.Load(),
	}
}

var (
	_ RateCache = (*RedisRateTableCache)(nil)
	_ RateCache = (*InMemoryRateTableCache)(nil)
	_ RateCache = (*TieredRateTableCache)(nil)

	_ RateInvalidator = (*RedisRateInvalidator)(nil)
)
