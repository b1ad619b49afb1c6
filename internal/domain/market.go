package domain

import "time"

// Platform identifies a trading venue.
type Platform string

const (
	PlatformKalshi     Platform = "kalshi"
	PlatformPolymarket Platform = "polymarket"
)

// Platforms lists every venue the scanner knows about, in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformKalshi, PlatformPolymarket}
}

// Market is an immutable per-fetch snapshot of a binary-outcome market,
// normalized to the common shape regardless of venue. Prices are decimal
// probabilities in [0,1]; YesPrice+NoPrice need not sum to 1 — that gap is
// the intra-market signal.
type Market struct {
	Platform Platform
	ID       string
	Ticker   string
	Title    string
	Category string
	EndDate  *time.Time

	YesPrice float64
	NoPrice  float64

	// Best bid/ask per side, 0 when the venue did not report a level.
	YesBid float64
	YesAsk float64
	NoBid  float64
	NoAsk  float64

	Volume    float64
	Liquidity float64

	// Cross-reference identifiers used only for exact-match shortcuts
	// against the durable store.
	Slug        string
	ConditionID string
	EventID     string

	LastUpdated time.Time
}

// AskYes returns the price to buy the yes side, falling back to the mid
// price when no ask level is available.
func (m Market) AskYes() float64 {
	if m.YesAsk > 0 {
		return m.YesAsk
	}
	return m.YesPrice
}

// AskNo returns the price to buy the no side, falling back to the mid
// price when no ask level is available.
func (m Market) AskNo() float64 {
	if m.NoAsk > 0 {
		return m.NoAsk
	}
	return m.NoPrice
}
