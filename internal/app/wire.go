package app

import (
	"context"
	"fmt"
	"log/slog"

	memcache "github.com/polyarb/arbscan/internal/cache/memory"
	rediscache "github.com/polyarb/arbscan/internal/cache/redis"
	"github.com/polyarb/arbscan/internal/config"
	"github.com/polyarb/arbscan/internal/detect"
	"github.com/polyarb/arbscan/internal/domain"
	"github.com/polyarb/arbscan/internal/notify"
	"github.com/polyarb/arbscan/internal/platform/kalshi"
	"github.com/polyarb/arbscan/internal/platform/polymarket"
	"github.com/polyarb/arbscan/internal/platform/resilient"
	"github.com/polyarb/arbscan/internal/service"
	"github.com/polyarb/arbscan/internal/store/postgres"
)

// Dependencies bundles everything the run modes need. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Refresh   *service.RefreshService
	Scheduler *service.Scheduler
	Detector  *detect.Detector
	Notifier  *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	ttls := domain.CacheTTLs{
		Markets:       cfg.Cache.MarketsTTL.Duration,
		Snapshots:     cfg.Cache.SnapshotsTTL.Duration,
		Opportunities: cfg.Cache.OpportunitiesTTL.Duration,
	}

	// --- Cache: Redis when configured, in-process otherwise ---
	var (
		marketCache domain.MarketCache
		resultCache domain.ResultCache
	)
	if cfg.Redis.Enabled {
		redisClient, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		rc := rediscache.NewMarketCache(redisClient, ttls)
		marketCache, resultCache = rc, rc
	} else {
		mc := memcache.New(ttls)
		marketCache, resultCache = mc, mc
	}

	// --- PostgreSQL durable store (optional tier) ---
	var (
		marketStore domain.MarketStore
		snapStore   domain.SnapshotStore
	)
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("app: run migrations: %w", err)
			}
		}
		marketStore = postgres.NewMarketStore(pgClient)
		snapStore = postgres.NewSnapshotStore(pgClient)
	}

	// --- Venue clients over the resilient transport ---
	policy := resilient.Policy{
		RetryAttempts: cfg.Fetch.RetryAttempts,
		BackoffBase:   cfg.Fetch.BackoffBase.Duration,
		Timeout:       cfg.Fetch.RequestTimeout.Duration,
	}
	kalshiClient := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey, policy, cfg.Fetch.MaxPages, logger)
	gammaClient := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, policy, cfg.Fetch.MaxPages, logger)

	// --- Detection + refresh ---
	detector := detect.NewDetector(detect.Config{
		MinProfitMargin: cfg.Detector.MinProfitMargin,
		MinConfidence:   cfg.Detector.MinConfidence,
		BaseStake:       cfg.Detector.BaseStake,
		Fees: domain.FeeStructure{
			Kalshi:     domain.PlatformFees{Taker: cfg.Detector.KalshiTakerFee, Maker: cfg.Detector.KalshiMakerFee},
			Polymarket: domain.PlatformFees{Taker: cfg.Detector.PolymarketTakerFee, Maker: cfg.Detector.PolymarketMakerFee},
		},
	}, logger)

	refreshSvc := service.NewRefreshService(service.Config{
		Sources:  []service.MarketSource{kalshiClient, gammaClient},
		Cache:    marketCache,
		Results:  resultCache,
		Markets:  marketStore,
		Snaps:    snapStore,
		Detector: detector,
		Logger:   logger,
	})
	closers = append(closers, refreshSvc.Wait)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	deps := &Dependencies{
		Refresh:   refreshSvc,
		Scheduler: service.NewScheduler(refreshSvc, logger),
		Detector:  detector,
		Notifier:  notifier,
	}
	return deps, cleanup, nil
}
