package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyarb/arbscan/internal/cache/memory"
	"github.com/polyarb/arbscan/internal/detect"
	"github.com/polyarb/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource is a MarketSource whose behavior is scripted per test.
type fakeSource struct {
	platform domain.Platform
	markets  []domain.Market
	err      error
	calls    int
	mu       sync.Mutex
}

func (f *fakeSource) ListMarkets(context.Context) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

func (f *fakeSource) Platform() domain.Platform { return f.platform }

// fakeStore implements the durable tier with scripted contents and a record
// of writes.
type fakeStore struct {
	mu        sync.Mutex
	byPlat    map[domain.Platform][]domain.Market
	upserted  [][]domain.Market
	snapshots [][]domain.SnapshotRow
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byPlat: make(map[domain.Platform][]domain.Market)}
}

func (f *fakeStore) UpsertBatch(_ context.Context, markets []domain.Market) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserted = append(f.upserted, markets)
	ids := make(map[string]int64, len(markets))
	for i, m := range markets {
		ids[m.ID] = int64(i + 1)
	}
	return ids, nil
}

func (f *fakeStore) GetWithLatestSnapshot(_ context.Context, p domain.Platform) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPlat[p], nil
}

func (f *fakeStore) Count(context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) InsertBatch(_ context.Context, rows []domain.SnapshotRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, rows)
	return nil
}

func kalshiMarkets() []domain.Market {
	return []domain.Market{{
		Platform: domain.PlatformKalshi, ID: "K1",
		Title: "Chiefs win Super Bowl 2027", Category: "Sports",
		YesAsk: 0.40, NoAsk: 0.65, LastUpdated: time.Now().UTC(),
	}}
}

func polyMarkets() []domain.Market {
	return []domain.Market{{
		Platform: domain.PlatformPolymarket, ID: "P1",
		Title: "Chiefs win Super Bowl 2027", Category: "Sports",
		YesPrice: 0.55, NoPrice: 0.45, LastUpdated: time.Now().UTC(),
	}}
}

func newTestService(kalshi, poly *fakeSource, store *fakeStore) (*RefreshService, *memory.Cache) {
	cache := memory.New(domain.DefaultCacheTTLs())
	cfg := Config{
		Sources:  []MarketSource{kalshi, poly},
		Cache:    cache,
		Results:  cache,
		Detector: detect.NewDetector(detect.DefaultConfig(), testLogger()),
		Logger:   testLogger(),
	}
	if store != nil {
		cfg.Markets = store
		cfg.Snaps = store
	}
	return NewRefreshService(cfg), cache
}

func TestRefreshAllLive(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, markets: kalshiMarkets()}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	store := newFakeStore()
	svc, cache := newTestService(kalshi, poly, store)

	update, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	svc.Wait()

	for _, p := range domain.Platforms() {
		status := update.Platforms[p]
		assert.True(t, status.Connected, p)
		assert.Equal(t, domain.DataSourceLive, status.Source, p)
		assert.Equal(t, 1, status.Markets, p)
		assert.Empty(t, status.Error, p)
	}

	// Matching titles with a mispriced book yields a cross-market hit.
	require.NotEmpty(t, update.Result.CrossMarket)

	// Write-through: cache and store both saw the live data.
	cached, err := cache.Get(context.Background(), domain.CacheCategoryMarkets, string(domain.PlatformKalshi))
	require.NoError(t, err)
	assert.Equal(t, "K1", cached[0].ID)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.upserted, 2)
	assert.Len(t, store.snapshots, 2)
}

func TestRefreshFallsBackToCache(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, markets: kalshiMarkets()}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	svc, _ := newTestService(kalshi, poly, nil)

	// Prime the cache with a successful cycle, then fail Kalshi live.
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	kalshi.mu.Lock()
	kalshi.err = errors.New("connection refused")
	kalshi.mu.Unlock()

	update, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	kStatus := update.Platforms[domain.PlatformKalshi]
	assert.False(t, kStatus.Connected)
	assert.Equal(t, domain.DataSourceCache, kStatus.Source)
	assert.Equal(t, 1, kStatus.Markets)

	pStatus := update.Platforms[domain.PlatformPolymarket]
	assert.True(t, pStatus.Connected)
	assert.Equal(t, domain.DataSourceLive, pStatus.Source)

	// Detection still runs on the blended data.
	assert.NotEmpty(t, update.Result.CrossMarket)
}

func TestRefreshFallsBackToStore(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, err: errors.New("down")}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	store := newFakeStore()
	store.byPlat[domain.PlatformKalshi] = kalshiMarkets()
	svc, _ := newTestService(kalshi, poly, store)

	update, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	svc.Wait()

	kStatus := update.Platforms[domain.PlatformKalshi]
	assert.False(t, kStatus.Connected)
	assert.Equal(t, domain.DataSourceStore, kStatus.Source)
	assert.Equal(t, 1, kStatus.Markets)
}

func TestRefreshAllSourcesExhausted(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, err: errors.New("down")}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	svc, _ := newTestService(kalshi, poly, nil)

	update, err := svc.Refresh(context.Background())
	require.NoError(t, err, "a dead platform degrades the cycle, it does not fail it")

	kStatus := update.Platforms[domain.PlatformKalshi]
	assert.False(t, kStatus.Connected)
	assert.Equal(t, domain.DataSourceNone, kStatus.Source)
	assert.Zero(t, kStatus.Markets)
	assert.Contains(t, kStatus.Error, "down")

	// The healthy platform still contributes intra-market detection input.
	pStatus := update.Platforms[domain.PlatformPolymarket]
	assert.Equal(t, domain.DataSourceLive, pStatus.Source)
}

func TestRefreshReentrancyGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	kalshi := &slowSource{platform: domain.PlatformKalshi, started: started, release: release}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	svc, _ := newTestService2(kalshi, poly)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Refresh(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	_, err := svc.Refresh(context.Background())
	assert.True(t, errors.Is(err, domain.ErrRefreshInFlight))

	close(release)
	wg.Wait()
}

// slowSource blocks its fetch until released so a second Refresh can overlap.
type slowSource struct {
	platform domain.Platform
	started  chan struct{}
	release  chan struct{}
	once     sync.Once
}

func (s *slowSource) ListMarkets(context.Context) ([]domain.Market, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return kalshiMarkets(), nil
}

func (s *slowSource) Platform() domain.Platform { return s.platform }

func newTestService2(kalshi MarketSource, poly MarketSource) (*RefreshService, *memory.Cache) {
	cache := memory.New(domain.DefaultCacheTTLs())
	return NewRefreshService(Config{
		Sources:  []MarketSource{kalshi, poly},
		Cache:    cache,
		Results:  cache,
		Detector: detect.NewDetector(detect.DefaultConfig(), testLogger()),
		Logger:   testLogger(),
	}), cache
}

func TestRefreshCountsPersistFailures(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, markets: kalshiMarkets()}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	store := newFakeStore()
	store.upsertErr = errors.New("disk full")
	svc, _ := newTestService(kalshi, poly, store)

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err, "persistence failures never surface to the caller")
	svc.Wait()

	assert.Equal(t, int64(2), svc.PersistFailures(), "one per platform")
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, markets: kalshiMarkets()}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	svc, _ := newTestService(kalshi, poly, nil)

	updates, cancel := svc.Subscribe()
	defer cancel()

	assert.Nil(t, svc.Last())

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	select {
	case update := <-updates:
		assert.NotEmpty(t, update.Platforms)
	case <-time.After(time.Second):
		t.Fatal("no update broadcast after refresh")
	}

	require.NotNil(t, svc.Last())
	assert.Equal(t, 2, len(svc.Last().Platforms))
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, markets: kalshiMarkets()}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	svc, _ := newTestService(kalshi, poly, nil)

	updates, cancel := svc.Subscribe()
	cancel()

	_, ok := <-updates
	assert.False(t, ok, "cancel closes the channel")

	// A refresh after cancellation must not panic on the closed channel.
	_, err := svc.Refresh(context.Background())
	assert.NoError(t, err)
}

func TestRefreshResultCachePopulated(t *testing.T) {
	kalshi := &fakeSource{platform: domain.PlatformKalshi, markets: kalshiMarkets()}
	poly := &fakeSource{platform: domain.PlatformPolymarket, markets: polyMarkets()}
	svc, cache := newTestService(kalshi, poly, nil)

	update, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	got, err := cache.GetResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, update.Result.TotalOpportunities, got.TotalOpportunities)
}
