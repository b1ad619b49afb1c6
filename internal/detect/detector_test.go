package detect

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyarb/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Fees = domain.FeeStructure{} // price-only assertions
	return cfg
}

func TestDetectFindsCrossMarketOpportunity(t *testing.T) {
	end := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	d := NewDetector(testConfig(), testLogger())

	kalshi := []domain.Market{{
		Platform: domain.PlatformKalshi, ID: "K1",
		Title: "Chiefs win Super Bowl 2027", Category: "Sports", EndDate: &end,
		YesAsk: 0.40, NoAsk: 0.65,
	}}
	polymarket := []domain.Market{{
		Platform: domain.PlatformPolymarket, ID: "P1",
		Title: "Chiefs win Super Bowl 2027", Category: "Sports", EndDate: &end,
		YesPrice: 0.55, NoPrice: 0.45, YesAsk: 0.56, NoAsk: 0.46,
	}}

	result := d.Detect(kalshi, polymarket)
	require.Len(t, result.CrossMarket, 1)
	assert.Equal(t, result.TotalOpportunities, len(result.CrossMarket)+len(result.IntraMarket))

	opp := result.CrossMarket[0]
	// Buy yes on Kalshi at 0.40, buy no on Polymarket at 0.45: 15% edge.
	assert.InDelta(t, 15.0, opp.ProfitMargin, 1e-9)
	assert.InDelta(t, 1.0, opp.Confidence, 1e-9)

	require.NotNil(t, result.Best)
	require.NotNil(t, result.Best.Cross)
	assert.Equal(t, opp.ID, result.Best.Cross.ID)
	assert.False(t, result.DetectedAt.IsZero())
}

func TestDetectFindsIntraMarketOpportunity(t *testing.T) {
	d := NewDetector(testConfig(), testLogger())

	kalshi := []domain.Market{{
		Platform: domain.PlatformKalshi, ID: "K1",
		Title: "Standalone wide book market",
		YesAsk: 0.44, NoAsk: 0.44,
	}}

	result := d.Detect(kalshi, nil)
	assert.Empty(t, result.CrossMarket)
	require.Len(t, result.IntraMarket, 1)
	assert.InDelta(t, 12.0, result.IntraMarket[0].ProfitMargin, 1e-9)

	require.NotNil(t, result.Best)
	assert.Nil(t, result.Best.Cross)
	require.NotNil(t, result.Best.Intra)
}

func TestDetectConfidenceGate(t *testing.T) {
	d := NewDetector(testConfig(), testLogger())
	d.SetMinConfidence(0.99)

	end := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	kalshi := []domain.Market{{
		Platform: domain.PlatformKalshi, ID: "K1",
		Title: "Fed cuts rates in June 2026", Category: "Economics", EndDate: &end,
		YesAsk: 0.40, NoAsk: 0.65,
	}}
	polymarket := []domain.Market{{
		Platform: domain.PlatformPolymarket, ID: "P1",
		Title: "Will the Fed cut rates in June 2026?", Category: "Economics", EndDate: &end,
		YesPrice: 0.55, NoPrice: 0.45,
	}}

	result := d.Detect(kalshi, polymarket)
	assert.Empty(t, result.CrossMarket, "near-match pair falls under the raised gate")
}

func TestDetectMarginGate(t *testing.T) {
	d := NewDetector(testConfig(), testLogger())
	d.SetMinProfitMargin(20)

	kalshi := []domain.Market{{
		Platform: domain.PlatformKalshi, ID: "K1",
		Title: "Wide book", YesAsk: 0.44, NoAsk: 0.44,
	}}

	result := d.Detect(kalshi, nil)
	assert.Empty(t, result.IntraMarket, "12% margin falls under a 20% gate")
	assert.Nil(t, result.Best)
	assert.Zero(t, result.TotalOpportunities)
}

func TestDetectRanksByMargin(t *testing.T) {
	d := NewDetector(testConfig(), testLogger())

	kalshi := []domain.Market{
		{Platform: domain.PlatformKalshi, ID: "SMALL", Title: "a", YesAsk: 0.48, NoAsk: 0.48},
		{Platform: domain.PlatformKalshi, ID: "BIG", Title: "b", YesAsk: 0.40, NoAsk: 0.40},
	}

	result := d.Detect(kalshi, nil)
	require.Len(t, result.IntraMarket, 2)
	assert.Equal(t, "BIG", result.IntraMarket[0].Market.ID)
	assert.Equal(t, "SMALL", result.IntraMarket[1].Market.ID)

	require.NotNil(t, result.Best)
	require.NotNil(t, result.Best.Intra)
	assert.InDelta(t, 20.0, result.Best.ProfitMargin(), 1e-9)
}

func TestDetectEmptyInputs(t *testing.T) {
	d := NewDetector(testConfig(), testLogger())
	result := d.Detect(nil, nil)
	assert.Zero(t, result.TotalOpportunities)
	assert.Nil(t, result.Best)
}
