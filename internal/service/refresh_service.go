// Package service drives the refresh cycle: per-platform data acquisition
// with a live → cache → durable-store fallback cascade, detection, state
// broadcast, and background snapshot persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polyarb/arbscan/internal/detect"
	"github.com/polyarb/arbscan/internal/domain"
)

// MarketSource fetches all current markets from one venue, normalized to the
// common Market shape.
type MarketSource interface {
	ListMarkets(ctx context.Context) ([]domain.Market, error)
	Platform() domain.Platform
}

// RefreshService owns the in-memory market/result state. All state mutation
// happens inside Refresh, which is reentrancy-guarded, so concurrent callers
// never interleave mid-cycle.
type RefreshService struct {
	sources  []MarketSource
	cache    domain.MarketCache
	results  domain.ResultCache
	markets  domain.MarketStore
	snaps    domain.SnapshotStore
	detector *detect.Detector
	logger   *slog.Logger

	inFlight atomic.Bool

	// persistFailures counts background writes that failed; they are never
	// surfaced to the refresh caller.
	persistFailures atomic.Int64
	persistWG       sync.WaitGroup

	mu   sync.Mutex
	last *domain.RefreshUpdate
	subs map[int]chan domain.RefreshUpdate
	next int
}

// Config bundles the refresh service dependencies. Markets and Snaps are
// optional; without them the store tier of the cascade and background
// persistence are disabled.
type Config struct {
	Sources  []MarketSource
	Cache    domain.MarketCache
	Results  domain.ResultCache
	Markets  domain.MarketStore
	Snaps    domain.SnapshotStore
	Detector *detect.Detector
	Logger   *slog.Logger
}

// NewRefreshService creates a RefreshService.
func NewRefreshService(cfg Config) *RefreshService {
	return &RefreshService{
		sources:  cfg.Sources,
		cache:    cfg.Cache,
		results:  cfg.Results,
		markets:  cfg.Markets,
		snaps:    cfg.Snaps,
		detector: cfg.Detector,
		logger:   cfg.Logger.With(slog.String("component", "refresh")),
		subs:     make(map[int]chan domain.RefreshUpdate),
	}
}

// Refresh runs one full cycle: fetch both platforms through the cascade,
// detect opportunities, broadcast the update. A call arriving while a cycle
// is in flight is a no-op and returns ErrRefreshInFlight.
func (s *RefreshService) Refresh(ctx context.Context) (*domain.RefreshUpdate, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrRefreshInFlight
	}
	defer s.inFlight.Store(false)

	started := time.Now().UTC()
	statuses := make(map[domain.Platform]domain.PlatformStatus, len(s.sources))
	fetched := make(map[domain.Platform][]domain.Market, len(s.sources))

	// Fetch platforms in parallel with full failure isolation: each
	// goroutine records its own status and always returns nil so one
	// platform's failure never cancels the other's fetch.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			markets, status := s.fetchPlatform(gctx, src)
			mu.Lock()
			fetched[src.Platform()] = markets
			statuses[src.Platform()] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := s.detector.Detect(
		fetched[domain.PlatformKalshi],
		fetched[domain.PlatformPolymarket],
	)
	if s.results != nil {
		if err := s.results.SetResult(ctx, result); err != nil {
			s.logger.WarnContext(ctx, "result cache write failed", slog.String("error", err.Error()))
		}
	}

	update := domain.RefreshUpdate{
		Result:    result,
		Platforms: statuses,
		StartedAt: started,
		Elapsed:   time.Since(started),
	}

	s.mu.Lock()
	s.last = &update
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
			// Slow subscriber; drop rather than stall the cycle.
		}
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "refresh complete",
		slog.Int("opportunities", result.TotalOpportunities),
		slog.Duration("elapsed", update.Elapsed),
	)
	return &update, nil
}

// fetchPlatform runs the fallback cascade for one platform: live fetch, then
// cache, then durable store. It always returns a status; markets is nil only
// when every tier is exhausted.
func (s *RefreshService) fetchPlatform(ctx context.Context, src MarketSource) ([]domain.Market, domain.PlatformStatus) {
	platform := src.Platform()
	status := domain.PlatformStatus{
		Platform:  platform,
		UpdatedAt: time.Now().UTC(),
	}

	markets, liveErr := src.ListMarkets(ctx)
	if liveErr == nil {
		status.Connected = true
		status.Source = domain.DataSourceLive
		status.Markets = len(markets)

		if err := s.cache.Set(ctx, domain.CacheCategoryMarkets, string(platform), markets); err != nil {
			s.logger.WarnContext(ctx, "cache write failed",
				slog.String("platform", string(platform)),
				slog.String("error", err.Error()),
			)
		}
		s.persistAsync(ctx, markets)
		return markets, status
	}

	status.Connected = false
	s.logger.WarnContext(ctx, "live fetch failed, falling back to cache",
		slog.String("platform", string(platform)),
		slog.String("error", liveErr.Error()),
	)

	markets, cacheErr := s.cache.Get(ctx, domain.CacheCategoryMarkets, string(platform))
	if cacheErr == nil {
		status.Source = domain.DataSourceCache
		status.Markets = len(markets)
		return markets, status
	}
	if !errors.Is(cacheErr, domain.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "cache read failed",
			slog.String("platform", string(platform)),
			slog.String("error", cacheErr.Error()),
		)
	}

	if s.markets != nil {
		markets, storeErr := s.markets.GetWithLatestSnapshot(ctx, platform)
		if storeErr == nil && len(markets) > 0 {
			status.Source = domain.DataSourceStore
			status.Markets = len(markets)
			return markets, status
		}
		if storeErr != nil {
			s.logger.WarnContext(ctx, "store read failed",
				slog.String("platform", string(platform)),
				slog.String("error", storeErr.Error()),
			)
		}
	}

	status.Source = domain.DataSourceNone
	status.Error = fmt.Sprintf("%v: %v", domain.ErrAllSourcesExhausted, liveErr)
	return nil, status
}

// persistAsync upserts the fetched markets and appends their snapshots in a
// background goroutine. It never delays the refresh, and failures are logged
// and counted but never returned to the caller.
func (s *RefreshService) persistAsync(ctx context.Context, markets []domain.Market) {
	if s.markets == nil || s.snaps == nil || len(markets) == 0 {
		return
	}

	// Detach from the refresh context so an early caller exit does not
	// abort the write.
	bgCtx := context.WithoutCancel(ctx)

	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()

		bgCtx, cancel := context.WithTimeout(bgCtx, 30*time.Second)
		defer cancel()

		ids, err := s.markets.UpsertBatch(bgCtx, markets)
		if err != nil {
			s.persistFailures.Add(1)
			s.logger.Error("background market upsert failed", slog.String("error", err.Error()))
			return
		}

		rows := make([]domain.SnapshotRow, 0, len(markets))
		for _, m := range markets {
			id, ok := ids[m.ID]
			if !ok {
				continue
			}
			rows = append(rows, domain.SnapshotRow{
				MarketID: id,
				YesPrice: m.YesPrice,
				NoPrice:  m.NoPrice,
				YesBid:   m.YesBid,
				YesAsk:   m.YesAsk,
				NoBid:    m.NoBid,
				NoAsk:    m.NoAsk,
				Volume:   m.Volume,
				TakenAt:  m.LastUpdated,
			})
		}
		if err := s.snaps.InsertBatch(bgCtx, rows); err != nil {
			s.persistFailures.Add(1)
			s.logger.Error("background snapshot insert failed", slog.String("error", err.Error()))
		}
	}()
}

// Last returns the most recent refresh update, or nil before the first cycle.
func (s *RefreshService) Last() *domain.RefreshUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// PersistFailures reports how many background persistence writes have failed
// since startup.
func (s *RefreshService) PersistFailures() int64 {
	return s.persistFailures.Load()
}

// Subscribe registers a listener for refresh updates. The returned cancel
// function must be called to release the subscription.
func (s *RefreshService) Subscribe() (<-chan domain.RefreshUpdate, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan domain.RefreshUpdate, 4)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Wait blocks until all in-flight background persistence writes finish.
// Intended for shutdown and tests.
func (s *RefreshService) Wait() {
	s.persistWG.Wait()
}
