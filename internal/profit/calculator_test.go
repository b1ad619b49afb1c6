package profit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyarb/arbscan/internal/domain"
)

func noFees() domain.FeeStructure {
	return domain.FeeStructure{}
}

func TestIntraMarketSpread(t *testing.T) {
	calc := NewCalculator(noFees(), 100)

	// A fairly priced book leaves no edge.
	fair := domain.Market{Platform: domain.PlatformKalshi, ID: "FAIR", YesAsk: 0.50, NoAsk: 0.50}
	assert.Nil(t, calc.IntraMarket(fair))

	// 0.46 + 0.46 = 0.92 total cost, 8% spread before fees.
	wide := domain.Market{Platform: domain.PlatformKalshi, ID: "WIDE", YesAsk: 0.46, NoAsk: 0.46}
	opp := calc.IntraMarket(wide)
	require.NotNil(t, opp)
	assert.InDelta(t, 0.08, opp.Spread, 1e-9)
	assert.InDelta(t, 8.0, opp.ProfitMargin, 1e-9)
	assert.Contains(t, opp.ID, "intra-")
}

func TestIntraMarketFeesEatTheEdge(t *testing.T) {
	fees := domain.FeeStructure{
		Kalshi: domain.PlatformFees{Taker: 0.05},
	}
	calc := NewCalculator(fees, 100)

	// 8% raw spread minus two 5% taker fees goes negative.
	m := domain.Market{Platform: domain.PlatformKalshi, ID: "M", YesAsk: 0.46, NoAsk: 0.46}
	assert.Nil(t, calc.IntraMarket(m))
}

func TestCrossMarketStrategyOne(t *testing.T) {
	fees := domain.FeeStructure{
		Kalshi:     domain.PlatformFees{Taker: 0.04},
		Polymarket: domain.PlatformFees{Taker: 0.05},
	}
	calc := NewCalculator(fees, 100)

	pair := domain.MarketPair{
		Kalshi: &domain.Market{
			Platform: domain.PlatformKalshi, ID: "K1",
			YesAsk: 0.40, NoAsk: 0.65,
		},
		Polymarket: &domain.Market{
			Platform: domain.PlatformPolymarket, ID: "P1",
			YesPrice: 0.55, NoPrice: 0.45,
		},
		Confidence: 0.95,
	}

	opp := calc.CrossMarket(pair)
	require.NotNil(t, opp)

	// 1 - (0.40 + 0.45) - 0.09 = 0.06 edge.
	assert.InDelta(t, 6.0, opp.ProfitMargin, 1e-9)
	assert.InDelta(t, 6.0, opp.ExpectedProfit, 1e-9)
	assert.InDelta(t, 100.0, opp.RequiredCapital, 1e-9)
	assert.Equal(t, 0.95, opp.Confidence)

	assert.Equal(t, domain.PlatformKalshi, opp.Directive.BuyLeg.Platform)
	assert.Equal(t, domain.SideYes, opp.Directive.BuyLeg.Side)
	assert.Equal(t, domain.PlatformPolymarket, opp.Directive.SellLeg.Platform)
	assert.Equal(t, domain.SideNo, opp.Directive.SellLeg.Side)
}

func TestCrossMarketStrategyTwo(t *testing.T) {
	calc := NewCalculator(noFees(), 100)

	// Buying no on Kalshi and yes on Polymarket is the cheaper hedge here.
	pair := domain.MarketPair{
		Kalshi: &domain.Market{
			Platform: domain.PlatformKalshi, ID: "K1",
			YesAsk: 0.60, NoAsk: 0.45,
		},
		Polymarket: &domain.Market{
			Platform: domain.PlatformPolymarket, ID: "P1",
			YesPrice: 0.48, NoPrice: 0.52,
		},
	}

	opp := calc.CrossMarket(pair)
	require.NotNil(t, opp)

	// 1 - (0.45 + 0.48) = 0.07 edge.
	assert.InDelta(t, 7.0, opp.ProfitMargin, 1e-9)
	assert.Equal(t, domain.SideNo, opp.Directive.BuyLeg.Side)
	assert.Equal(t, domain.SideYes, opp.Directive.SellLeg.Side)
}

func TestCrossMarketNoEdge(t *testing.T) {
	calc := NewCalculator(noFees(), 100)

	pair := domain.MarketPair{
		Kalshi:     &domain.Market{Platform: domain.PlatformKalshi, YesAsk: 0.55, NoAsk: 0.55},
		Polymarket: &domain.Market{Platform: domain.PlatformPolymarket, YesPrice: 0.50, NoPrice: 0.50},
	}
	assert.Nil(t, calc.CrossMarket(pair))

	assert.Nil(t, calc.CrossMarket(domain.MarketPair{}), "incomplete pair")
}

func TestCrossMarketTinyEdgeIsNoise(t *testing.T) {
	calc := NewCalculator(noFees(), 100)

	// 0.0005 edge sits below the floor.
	pair := domain.MarketPair{
		Kalshi:     &domain.Market{Platform: domain.PlatformKalshi, YesAsk: 0.4995, NoAsk: 0.9},
		Polymarket: &domain.Market{Platform: domain.PlatformPolymarket, YesPrice: 0.9, NoPrice: 0.50},
	}
	assert.Nil(t, calc.CrossMarket(pair))
}

func TestExpectedValue(t *testing.T) {
	// Price equals probability with no fee: zero EV.
	assert.InDelta(t, 0.0, ExpectedValue(0.5, 0.5, 0), 1e-9)

	// Underpriced contract has positive EV.
	assert.Greater(t, ExpectedValue(0.4, 0.5, 0), 0.0)

	// Fees drag EV down.
	assert.Less(t, ExpectedValue(0.4, 0.5, 0.05), ExpectedValue(0.4, 0.5, 0))
}

func TestKellyFraction(t *testing.T) {
	assert.Equal(t, 0.0, KellyFraction(1000, 0.5, 0.5), "no edge, no bet")
	assert.Equal(t, 0.0, KellyFraction(1000, 0.4, 0.5), "negative edge, no bet")

	// prob 0.6 at price 0.5: even odds, full Kelly 0.2, half Kelly 0.1.
	assert.InDelta(t, 100.0, KellyFraction(1000, 0.6, 0.5), 1e-9)

	// Extreme edge clamps at a quarter of bankroll.
	assert.InDelta(t, 250.0, KellyFraction(1000, 0.99, 0.01), 1e-9)
}

func TestSortOrdering(t *testing.T) {
	cross := []domain.ArbitrageOpportunity{
		{ID: "a", ProfitMargin: 2},
		{ID: "b", ProfitMargin: 8},
		{ID: "c", ProfitMargin: 5},
	}
	SortCross(cross)
	assert.Equal(t, []string{"b", "c", "a"}, []string{cross[0].ID, cross[1].ID, cross[2].ID})

	intra := []domain.IntraMarketOpportunity{
		{ID: "x", ProfitMargin: 1},
		{ID: "y", ProfitMargin: 3},
	}
	SortIntra(intra)
	assert.Equal(t, "y", intra[0].ID)
}
