package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyarb/arbscan/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given Client.
func NewSnapshotStore(c *Client) *SnapshotStore {
	return &SnapshotStore{pool: c.Pool()}
}

// InsertBatch appends snapshot rows in a single batch.
func (s *SnapshotStore) InsertBatch(ctx context.Context, rows []domain.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	const query = `
		INSERT INTO market_snapshots (
			market_id, yes_price, no_price,
			yes_bid, yes_ask, no_bid, no_ask,
			volume, taken_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query,
			r.MarketID, r.YesPrice, r.NoPrice,
			r.YesBid, r.YesAsk, r.NoBid, r.NoAsk,
			r.Volume, r.TakenAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert snapshot batch: %w", err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
