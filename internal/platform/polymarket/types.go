package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/polyarb/arbscan/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Numeric fields arrive as strings; outcome arrays arrive JSON-encoded
// inside strings.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"condition_id"`
	Slug          string   `json:"slug"`
	Category      string   `json:"category"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // e.g. "[\"0.52\",\"0.48\"]"
	Volume        string   `json:"volume"`
	Liquidity     string   `json:"liquidity"`
	BestBid       float64  `json:"bestBid"`
	BestAsk       float64  `json:"bestAsk"`
	EndDateISO    string   `json:"end_date_iso"`
	EventID       string   `json:"event_id"`
	UpdatedAt     string   `json:"updated_at"`
}

// ToDomain converts the wire format to the common Market shape. Outcome
// prices are already decimal probabilities in [0,1].
func (a *APIMarket) ToDomain() domain.Market {
	m := domain.Market{
		Platform:    domain.PlatformPolymarket,
		ID:          a.ID,
		Ticker:      a.Slug,
		Title:       a.Question,
		Category:    a.Category,
		Slug:        a.Slug,
		ConditionID: a.ConditionID,
		EventID:     a.EventID,
		LastUpdated: time.Now().UTC(),
	}

	if prices := decodeStringArray(a.OutcomePrices); len(prices) >= 2 {
		m.YesPrice, _ = strconv.ParseFloat(prices[0], 64)
		m.NoPrice, _ = strconv.ParseFloat(prices[1], 64)
	}

	// Gamma reports a single book for the yes token; the no side mirrors it.
	m.YesBid = a.BestBid
	m.YesAsk = a.BestAsk
	if a.BestAsk > 0 {
		m.NoBid = 1 - a.BestAsk
	}
	if a.BestBid > 0 {
		m.NoAsk = 1 - a.BestBid
	}

	m.Volume, _ = strconv.ParseFloat(a.Volume, 64)
	m.Liquidity, _ = strconv.ParseFloat(a.Liquidity, 64)

	if t, err := time.Parse(time.RFC3339, a.EndDateISO); err == nil {
		m.EndDate = &t
	}
	if t, err := time.Parse(time.RFC3339, a.UpdatedAt); err == nil {
		m.LastUpdated = t
	}
	return m
}

// decodeStringArray parses a JSON-encoded string array like "[\"0.5\",\"0.5\"]".
func decodeStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
