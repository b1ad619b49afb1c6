package domain

import (
	"context"
	"time"
)

// CacheCategory namespaces cached values by what kind of data they hold.
type CacheCategory string

const (
	CacheCategoryMarkets       CacheCategory = "markets"
	CacheCategorySnapshots     CacheCategory = "snapshots"
	CacheCategoryOpportunities CacheCategory = "opportunities"
)

// Freshness classifies the age of a cached entry.
type Freshness string

const (
	FreshnessLive   Freshness = "live"   // written less than a second ago
	FreshnessCached Freshness = "cached" // within TTL
	FreshnessStale  Freshness = "stale"  // expired or absent
)

// MarketCache is a per-category TTL cache of market snapshot lists, keyed by
// platform. Get never refreshes implicitly; an expired entry behaves exactly
// like a missing one and returns ErrCacheMiss.
type MarketCache interface {
	Set(ctx context.Context, category CacheCategory, key string, markets []Market) error
	Get(ctx context.Context, category CacheCategory, key string) ([]Market, error)
	Freshness(ctx context.Context, category CacheCategory, key string) (Freshness, error)
	Invalidate(ctx context.Context, category CacheCategory, key string) error
	InvalidateAll(ctx context.Context) error
}

// ResultCache caches the latest detection result under the opportunities
// category, keyed implicitly by the singleton detection cycle.
type ResultCache interface {
	SetResult(ctx context.Context, result DetectionResult) error
	GetResult(ctx context.Context) (DetectionResult, error)
}

// CacheTTLs holds the per-category time-to-live values.
type CacheTTLs struct {
	Markets       time.Duration
	Snapshots     time.Duration
	Opportunities time.Duration
}

// DefaultCacheTTLs returns the TTLs used when the config does not override them.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Markets:       5 * time.Minute,
		Snapshots:     time.Minute,
		Opportunities: 30 * time.Second,
	}
}

// TTL returns the time-to-live for the given category.
func (t CacheTTLs) TTL(category CacheCategory) time.Duration {
	switch category {
	case CacheCategoryMarkets:
		return t.Markets
	case CacheCategorySnapshots:
		return t.Snapshots
	case CacheCategoryOpportunities:
		return t.Opportunities
	default:
		return t.Markets
	}
}
