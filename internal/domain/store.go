package domain

import (
	"context"
	"time"
)

// SnapshotRow is one price observation persisted for later analysis.
type SnapshotRow struct {
	MarketID int64
	YesPrice float64
	NoPrice  float64
	YesBid   float64
	YesAsk   float64
	NoBid    float64
	NoAsk    float64
	Volume   float64
	TakenAt  time.Time
}

// MarketStore persists market metadata. UpsertBatch returns the mapping from
// each market's venue-side external ID to its internal row ID so callers can
// attach snapshots.
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []Market) (map[string]int64, error)
	GetWithLatestSnapshot(ctx context.Context, platform Platform) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// SnapshotStore persists price snapshot rows.
type SnapshotStore interface {
	InsertBatch(ctx context.Context, rows []SnapshotRow) error
}
