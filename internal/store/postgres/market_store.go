package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyarb/arbscan/internal/domain"
)

// MarketStore implements domain.MarketStore.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given Client.
func NewMarketStore(c *Client) *MarketStore {
	return &MarketStore{pool: c.Pool()}
}

// UpsertBatch inserts or updates markets keyed by (platform, external_id) and
// returns the external-to-internal ID mapping for snapshot attachment.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) (map[string]int64, error) {
	ids := make(map[string]int64, len(markets))
	if len(markets) == 0 {
		return ids, nil
	}

	const query = `
		INSERT INTO markets (
			platform, external_id, ticker, title, category,
			slug, condition_id, event_id, end_date, volume, liquidity, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, NOW()
		)
		ON CONFLICT (platform, external_id) DO UPDATE SET
			ticker       = EXCLUDED.ticker,
			title        = EXCLUDED.title,
			category     = EXCLUDED.category,
			slug         = EXCLUDED.slug,
			condition_id = EXCLUDED.condition_id,
			event_id     = EXCLUDED.event_id,
			end_date     = EXCLUDED.end_date,
			volume       = EXCLUDED.volume,
			liquidity    = EXCLUDED.liquidity,
			updated_at   = NOW()
		RETURNING id`

	// RETURNING forces one round trip per row, so run them inside a single
	// transaction rather than a pgx.Batch.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin upsert batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range markets {
		var id int64
		err := tx.QueryRow(ctx, query,
			string(m.Platform), m.ID, m.Ticker, m.Title, m.Category,
			m.Slug, m.ConditionID, m.EventID, m.EndDate, m.Volume, m.Liquidity,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("postgres: upsert market %s/%s: %w", m.Platform, m.ID, err)
		}
		ids[m.ID] = id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit upsert batch: %w", err)
	}
	return ids, nil
}

// GetWithLatestSnapshot returns every market on the platform joined with its
// most recent price snapshot. Markets without a snapshot are omitted.
func (s *MarketStore) GetWithLatestSnapshot(ctx context.Context, platform domain.Platform) ([]domain.Market, error) {
	const query = `
		SELECT DISTINCT ON (m.id)
			m.external_id, m.ticker, m.title, m.category,
			m.slug, m.condition_id, m.event_id, m.end_date,
			m.volume, m.liquidity,
			s.yes_price, s.no_price, s.yes_bid, s.yes_ask, s.no_bid, s.no_ask,
			s.taken_at
		FROM markets m
		JOIN market_snapshots s ON s.market_id = m.id
		WHERE m.platform = $1
		ORDER BY m.id, s.taken_at DESC`

	rows, err := s.pool.Query(ctx, query, string(platform))
	if err != nil {
		return nil, fmt.Errorf("postgres: get markets with latest snapshot: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m := domain.Market{Platform: platform}
		var endDate *time.Time
		var takenAt time.Time
		err := rows.Scan(
			&m.ID, &m.Ticker, &m.Title, &m.Category,
			&m.Slug, &m.ConditionID, &m.EventID, &endDate,
			&m.Volume, &m.Liquidity,
			&m.YesPrice, &m.NoPrice, &m.YesBid, &m.YesAsk, &m.NoBid, &m.NoAsk,
			&takenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market row: %w", err)
		}
		m.EndDate = endDate
		m.LastUpdated = takenAt
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate market rows: %w", err)
	}
	return out, nil
}

// Count returns the total number of markets in the store.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
