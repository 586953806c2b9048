package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
)

type rateTableEntry struct {
	rates     []settlement.ExchangeRate
	expiresAt time.Time
}

// InMemoryRateTableCache is a process-local rate table cache. It serves as
// the first tier in front of Redis and as the only tier without Redis.
type InMemoryRateTableCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]rateTableEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryRateTableCache creates the cache; a non-positive ttl uses ten minutes
func NewInMemoryRateTableCache(ttl time.Duration) *InMemoryRateTableCache {
	if ttl <= 0 {
		ttl = defaultRateTTL
	}
	return &InMemoryRateTableCache{
		entries: make(map[uuid.UUID]rateTableEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached snapshot
func (c *InMemoryRateTableCache) Get(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return append([]settlement.ExchangeRate(nil), e.rates...), true, nil
}

// Set stores a copy of the snapshot
func (c *InMemoryRateTableCache) Set(ctx context.Context, tenantID uuid.UUID, rates []settlement.ExchangeRate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = rateTableEntry{
		rates:     append([]settlement.ExchangeRate(nil), rates...),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops the tenant's snapshot
func (c *InMemoryRateTableCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

// Len returns the number of cached tenants
func (c *InMemoryRateTableCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
