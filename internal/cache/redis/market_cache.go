package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polyarb/arbscan/internal/domain"
)

// liveWindow is the age below which an entry is classified as "live".
const liveWindow = time.Second

// envelope is the stored value: the market list plus its write timestamp so
// freshness can be classified without a second key.
type envelope struct {
	Markets []domain.Market `json:"markets"`
	TS      time.Time       `json:"ts"`
}

// MarketCache implements domain.MarketCache on Redis strings with
// driver-side expiry mirroring the per-category TTL.
//
// Key schema:
//
//	arbscan:{category}:{key} - JSON envelope {markets, ts}
type MarketCache struct {
	rdb  *redis.Client
	ttls domain.CacheTTLs
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client, ttls domain.CacheTTLs) *MarketCache {
	return &MarketCache{rdb: c.Underlying(), ttls: ttls}
}

func cacheKey(category domain.CacheCategory, key string) string {
	return fmt.Sprintf("arbscan:%s:%s", category, key)
}

// Set stores the market list under category/key with a fresh timestamp,
// always overwriting.
func (mc *MarketCache) Set(ctx context.Context, category domain.CacheCategory, key string, markets []domain.Market) error {
	data, err := json.Marshal(envelope{Markets: markets, TS: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("redis: marshal %s/%s: %w", category, key, err)
	}
	if err := mc.rdb.Set(ctx, cacheKey(category, key), data, mc.ttls.TTL(category)).Err(); err != nil {
		return fmt.Errorf("redis: set %s/%s: %w", category, key, err)
	}
	return nil
}

// Get returns the cached markets, or domain.ErrCacheMiss when the entry is
// absent or past its TTL. It never refreshes implicitly.
func (mc *MarketCache) Get(ctx context.Context, category domain.CacheCategory, key string) ([]domain.Market, error) {
	env, err := mc.read(ctx, category, key)
	if err != nil {
		return nil, err
	}
	if time.Since(env.TS) >= mc.ttls.TTL(category) {
		return nil, domain.ErrCacheMiss
	}
	return env.Markets, nil
}

// Freshness classifies the age of the entry at category/key.
func (mc *MarketCache) Freshness(ctx context.Context, category domain.CacheCategory, key string) (domain.Freshness, error) {
	env, err := mc.read(ctx, category, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return domain.FreshnessStale, nil
		}
		return domain.FreshnessStale, err
	}
	age := time.Since(env.TS)
	switch {
	case age < liveWindow:
		return domain.FreshnessLive, nil
	case age < mc.ttls.TTL(category):
		return domain.FreshnessCached, nil
	default:
		return domain.FreshnessStale, nil
	}
}

// Invalidate removes a single entry.
func (mc *MarketCache) Invalidate(ctx context.Context, category domain.CacheCategory, key string) error {
	if err := mc.rdb.Del(ctx, cacheKey(category, key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate %s/%s: %w", category, key, err)
	}
	return nil
}

// InvalidateAll removes every arbscan entry across all categories.
func (mc *MarketCache) InvalidateAll(ctx context.Context) error {
	iter := mc.rdb.Scan(ctx, 0, "arbscan:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := mc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate all: %w", err)
	}
	return nil
}

const resultKey = "arbscan:opportunities:latest"

// SetResult caches the latest detection result under the opportunities TTL.
func (mc *MarketCache) SetResult(ctx context.Context, result domain.DetectionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal result: %w", err)
	}
	ttl := mc.ttls.TTL(domain.CacheCategoryOpportunities)
	if err := mc.rdb.Set(ctx, resultKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set result: %w", err)
	}
	return nil
}

// GetResult returns the cached detection result, or domain.ErrCacheMiss.
func (mc *MarketCache) GetResult(ctx context.Context) (domain.DetectionResult, error) {
	data, err := mc.rdb.Get(ctx, resultKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DetectionResult{}, domain.ErrCacheMiss
		}
		return domain.DetectionResult{}, fmt.Errorf("redis: get result: %w", err)
	}
	var result domain.DetectionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.DetectionResult{}, fmt.Errorf("redis: unmarshal result: %w", err)
	}
	return result, nil
}

func (mc *MarketCache) read(ctx context.Context, category domain.CacheCategory, key string) (envelope, error) {
	data, err := mc.rdb.Get(ctx, cacheKey(category, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return envelope{}, domain.ErrCacheMiss
		}
		return envelope{}, fmt.Errorf("redis: get %s/%s: %w", category, key, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("redis: unmarshal %s/%s: %w", category, key, err)
	}
	return env, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketCache = (*MarketCache)(nil)
	_ domain.ResultCache = (*MarketCache)(nil)
)
