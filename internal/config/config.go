// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSCAN_* environment
// variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Detector   DetectorConfig   `toml:"detector"`
	Fetch      FetchConfig      `toml:"fetch"`
	Cache      CacheConfig      `toml:"cache"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// KalshiConfig holds Kalshi API parameters. The API key is passed through
// opaquely; public market data works without one.
type KalshiConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// PolymarketConfig holds Polymarket Gamma API parameters.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// PostgresConfig holds PostgreSQL connection parameters. Leaving every field
// empty disables the durable store tier entirely.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Disabled falls back to the
// in-process cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// DetectorConfig holds detection thresholds and fee rates.
type DetectorConfig struct {
	// MinProfitMargin is the minimum net edge in percent.
	MinProfitMargin float64 `toml:"min_profit_margin"`
	MinConfidence   float64 `toml:"min_confidence"`
	BaseStake       float64 `toml:"base_stake"`

	KalshiTakerFee     float64 `toml:"kalshi_taker_fee"`
	KalshiMakerFee     float64 `toml:"kalshi_maker_fee"`
	PolymarketTakerFee float64 `toml:"polymarket_taker_fee"`
	PolymarketMakerFee float64 `toml:"polymarket_maker_fee"`
}

// FetchConfig holds retry and pagination parameters for the data-acquisition
// layer.
type FetchConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	RetryAttempts   int      `toml:"retry_attempts"`
	BackoffBase     duration `toml:"backoff_base"`
	RequestTimeout  duration `toml:"request_timeout"`
	MaxPages        int      `toml:"max_pages"`
}

// CacheConfig holds per-category TTLs.
type CacheConfig struct {
	MarketsTTL       duration `toml:"markets_ttl"`
	SnapshotsTTL     duration `toml:"snapshots_ttl"`
	OpportunitiesTTL duration `toml:"opportunities_ttl"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Detector: DetectorConfig{
			MinProfitMargin:    0.5,
			MinConfidence:      0.6,
			BaseStake:          100,
			KalshiTakerFee:     0.01,
			PolymarketTakerFee: 0.02,
		},
		Fetch: FetchConfig{
			RefreshInterval: duration{30 * time.Second},
			RetryAttempts:   3,
			BackoffBase:     duration{500 * time.Millisecond},
			RequestTimeout:  duration{10 * time.Second},
			MaxPages:        100,
		},
		Cache: CacheConfig{
			MarketsTTL:       duration{5 * time.Minute},
			SnapshotsTTL:     duration{time.Minute},
			OpportunitiesTTL: duration{30 * time.Second},
		},
		Mode:     "watch",
		LogLevel: "info",
	}
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.Mode {
	case "scan", "watch":
	default:
		return fmt.Errorf("config: unknown mode %q (want scan or watch)", c.Mode)
	}

	if strings.TrimSpace(c.Kalshi.BaseURL) == "" {
		return fmt.Errorf("config: kalshi.base_url is required")
	}
	if strings.TrimSpace(c.Polymarket.GammaHost) == "" {
		return fmt.Errorf("config: polymarket.gamma_host is required")
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("config: detector.min_confidence must be in [0,1], got %v", c.Detector.MinConfidence)
	}
	if c.Detector.MinProfitMargin < 0 {
		return fmt.Errorf("config: detector.min_profit_margin must be >= 0, got %v", c.Detector.MinProfitMargin)
	}
	for name, fee := range map[string]float64{
		"kalshi_taker_fee":     c.Detector.KalshiTakerFee,
		"kalshi_maker_fee":     c.Detector.KalshiMakerFee,
		"polymarket_taker_fee": c.Detector.PolymarketTakerFee,
		"polymarket_maker_fee": c.Detector.PolymarketMakerFee,
	} {
		if fee < 0 || fee >= 1 {
			return fmt.Errorf("config: detector.%s must be in [0,1), got %v", name, fee)
		}
	}

	if c.Fetch.RetryAttempts < 0 {
		return fmt.Errorf("config: fetch.retry_attempts must be >= 0, got %d", c.Fetch.RetryAttempts)
	}
	if c.Fetch.RefreshInterval.Duration <= 0 {
		return fmt.Errorf("config: fetch.refresh_interval must be positive, got %v", c.Fetch.RefreshInterval.Duration)
	}
	if c.Fetch.MaxPages <= 0 {
		return fmt.Errorf("config: fetch.max_pages must be positive, got %d", c.Fetch.MaxPages)
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if strings.TrimSpace(c.Postgres.Host) == "" || strings.TrimSpace(c.Postgres.Database) == "" {
			return fmt.Errorf("config: postgres enabled but neither dsn nor host/database set")
		}
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("config: redis enabled but addr is empty")
	}
	return nil
}
