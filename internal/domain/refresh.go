package domain

import "time"

// DataSource tags where a platform's markets came from during a refresh.
type DataSource string

const (
	DataSourceLive  DataSource = "live"
	DataSourceCache DataSource = "cache"
	DataSourceStore DataSource = "store"
	DataSourceNone  DataSource = "none"
)

// PlatformStatus reports one platform's outcome for a refresh cycle.
type PlatformStatus struct {
	Platform  Platform
	Connected bool
	Source    DataSource
	Markets   int
	Error     string
	UpdatedAt time.Time
}

// RefreshUpdate is the state broadcast to subscribers after each refresh:
// the detection result plus per-platform provenance.
type RefreshUpdate struct {
	Result    DetectionResult
	Platforms map[Platform]PlatformStatus
	StartedAt time.Time
	Elapsed   time.Duration
}
