package kalshi

import (
	"time"

	"github.com/polyarb/arbscan/internal/domain"
)

// APIMarket represents a market as returned by the Kalshi REST API.
// Prices arrive as integer cents (1-99).
type APIMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"`
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
	LastPrice    int64  `json:"last_price"`
	Volume       int64  `json:"volume"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	Liquidity    int64  `json:"liquidity"`
	Category     string `json:"category"`
	CloseTime    string `json:"close_time"`
	Result       string `json:"result"`
}

// APIErrorResponse represents a Kalshi API error body.
type APIErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// centsToProb converts an integer-cent price to the [0,1] decimal convention.
func centsToProb(cents int64) float64 {
	if cents <= 0 {
		return 0
	}
	return float64(cents) / 100
}

// ToDomain converts the wire format to the common Market shape.
func (a *APIMarket) ToDomain() domain.Market {
	m := domain.Market{
		Platform:    domain.PlatformKalshi,
		ID:          a.Ticker,
		Ticker:      a.Ticker,
		Title:       a.Title,
		Category:    a.Category,
		YesBid:      centsToProb(a.YesBid),
		YesAsk:      centsToProb(a.YesAsk),
		NoBid:       centsToProb(a.NoBid),
		NoAsk:       centsToProb(a.NoAsk),
		Volume:      float64(a.Volume),
		Liquidity:   float64(a.Liquidity) / 100,
		EventID:     a.EventTicker,
		LastUpdated: time.Now().UTC(),
	}

	// Mid prices from the book; last trade as fallback for the yes side.
	m.YesPrice = mid(m.YesBid, m.YesAsk)
	if m.YesPrice == 0 {
		m.YesPrice = centsToProb(a.LastPrice)
	}
	m.NoPrice = mid(m.NoBid, m.NoAsk)
	if m.NoPrice == 0 && m.YesPrice > 0 {
		m.NoPrice = 1 - m.YesPrice
	}

	if t, err := time.Parse(time.RFC3339, a.CloseTime); err == nil {
		m.EndDate = &t
	}
	return m
}

func mid(bid, ask float64) float64 {
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case ask > 0:
		return ask
	case bid > 0:
		return bid
	default:
		return 0
	}
}
