// Package memory implements domain.MarketCache with an in-process map. It
// backs deployments without Redis and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/polyarb/arbscan/internal/domain"
)

const liveWindow = time.Second

type entry struct {
	markets []domain.Market
	ts      time.Time
}

type resultEntry struct {
	result domain.DetectionResult
	ts     time.Time
}

// Cache is a mutex-guarded TTL cache keyed by category and key. The key
// space is bounded by the fixed platform set, so there is no eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	result  *resultEntry
	ttls    domain.CacheTTLs

	// now is swappable for freshness tests.
	now func() time.Time
}

// New creates a Cache with the given per-category TTLs.
func New(ttls domain.CacheTTLs) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttls:    ttls,
		now:     time.Now,
	}
}

func key(category domain.CacheCategory, k string) string {
	return string(category) + ":" + k
}

// Set stores the market list with a fresh timestamp, always overwriting.
func (c *Cache) Set(_ context.Context, category domain.CacheCategory, k string, markets []domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(category, k)] = entry{markets: markets, ts: c.now()}
	return nil
}

// Get returns the cached markets, or domain.ErrCacheMiss when the entry is
// absent or past its TTL.
func (c *Cache) Get(_ context.Context, category domain.CacheCategory, k string) ([]domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(category, k)]
	if !ok || c.now().Sub(e.ts) >= c.ttls.TTL(category) {
		return nil, domain.ErrCacheMiss
	}
	return e.markets, nil
}

// Freshness classifies the age of the entry at category/key.
func (c *Cache) Freshness(_ context.Context, category domain.CacheCategory, k string) (domain.Freshness, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(category, k)]
	if !ok {
		return domain.FreshnessStale, nil
	}
	age := c.now().Sub(e.ts)
	switch {
	case age < liveWindow:
		return domain.FreshnessLive, nil
	case age < c.ttls.TTL(category):
		return domain.FreshnessCached, nil
	default:
		return domain.FreshnessStale, nil
	}
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(_ context.Context, category domain.CacheCategory, k string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(category, k))
	return nil
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.result = nil
	return nil
}

// SetResult caches the latest detection result under the opportunities TTL.
func (c *Cache) SetResult(_ context.Context, result domain.DetectionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = &resultEntry{result: result, ts: c.now()}
	return nil
}

// GetResult returns the cached detection result, or domain.ErrCacheMiss when
// absent or past the opportunities TTL.
func (c *Cache) GetResult(_ context.Context) (domain.DetectionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil || c.now().Sub(c.result.ts) >= c.ttls.TTL(domain.CacheCategoryOpportunities) {
		return domain.DetectionResult{}, domain.ErrCacheMiss
	}
	return c.result.result, nil
}

// SetClock overrides the time source. Test hook.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Compile-time interface checks.
var (
	_ domain.MarketCache = (*Cache)(nil)
	_ domain.ResultCache = (*Cache)(nil)
)
