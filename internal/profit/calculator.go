// Package profit computes fee-aware arbitrage profit for matched market
// pairs (cross-market) and single markets (intra-market yes/no spread).
package profit

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/polyarb/arbscan/internal/domain"
)

// minProfit is the floor below which an edge is treated as noise.
const minProfit = 0.001

// DefaultBaseStake is the capital assumed per opportunity when the config
// does not override it, in currency units.
const DefaultBaseStake = 100.0

// Calculator evaluates opportunities against a fee structure.
type Calculator struct {
	fees      domain.FeeStructure
	baseStake float64
}

// NewCalculator creates a Calculator. A baseStake of 0 falls back to
// DefaultBaseStake.
func NewCalculator(fees domain.FeeStructure, baseStake float64) *Calculator {
	if baseStake <= 0 {
		baseStake = DefaultBaseStake
	}
	return &Calculator{fees: fees, baseStake: baseStake}
}

// SetFees replaces the fee structure.
func (c *Calculator) SetFees(fees domain.FeeStructure) { c.fees = fees }

// CrossMarket evaluates both hedging strategies for a matched pair and
// returns the better one, or nil when neither clears the profit floor:
//
//	strategy 1: buy yes on the Kalshi leg, buy no on the Polymarket leg
//	strategy 2: buy no on the Kalshi leg, buy yes on the Polymarket leg
//
// Ties prefer strategy 1.
func (c *Calculator) CrossMarket(pair domain.MarketPair) *domain.ArbitrageOpportunity {
	if pair.Kalshi == nil || pair.Polymarket == nil {
		return nil
	}
	m1, m2 := *pair.Kalshi, *pair.Polymarket
	fees := c.fees.Taker(m1.Platform) + c.fees.Taker(m2.Platform)

	cost1 := m1.AskYes() + m2.NoPrice
	profit1 := 1 - cost1 - fees

	cost2 := m1.AskNo() + m2.YesPrice
	profit2 := 1 - cost2 - fees

	profit := profit1
	directive := domain.TradeDirective{
		BuyLeg:  domain.TradeLeg{Platform: m1.Platform, Side: domain.SideYes, Price: m1.AskYes()},
		SellLeg: domain.TradeLeg{Platform: m2.Platform, Side: domain.SideNo, Price: m2.NoPrice},
	}
	if profit2 > profit1 {
		profit = profit2
		directive = domain.TradeDirective{
			BuyLeg:  domain.TradeLeg{Platform: m1.Platform, Side: domain.SideNo, Price: m1.AskNo()},
			SellLeg: domain.TradeLeg{Platform: m2.Platform, Side: domain.SideYes, Price: m2.YesPrice},
		}
	}
	if profit <= minProfit {
		return nil
	}

	return &domain.ArbitrageOpportunity{
		ID:              fmt.Sprintf("cross-%s", uuid.NewString()),
		Kalshi:          m1,
		Polymarket:      m2,
		Directive:       directive,
		ProfitMargin:    profit * 100,
		RequiredCapital: c.baseStake,
		ExpectedProfit:  profit * c.baseStake,
		Confidence:      pair.Confidence,
		DetectedAt:      time.Now().UTC(),
	}
}

// IntraMarket evaluates a single market's yes/no spread after fees, or nil
// when the spread does not clear the profit floor.
func (c *Calculator) IntraMarket(m domain.Market) *domain.IntraMarketOpportunity {
	cost := m.AskYes() + m.AskNo()
	fees := 2 * c.fees.Taker(m.Platform)
	spread := 1 - cost - fees
	if spread <= minProfit {
		return nil
	}

	return &domain.IntraMarketOpportunity{
		ID:           fmt.Sprintf("intra-%s", uuid.NewString()),
		Market:       m,
		YesPrice:     m.YesPrice,
		NoPrice:      m.NoPrice,
		Spread:       spread,
		ProfitMargin: spread * 100,
		DetectedAt:   time.Now().UTC(),
	}
}

// ExpectedValue returns the expected value of buying one contract at price
// with win probability prob: prob·(1−price−fee) − (1−prob)·price.
func ExpectedValue(price, prob, fee float64) float64 {
	return prob*(1-price-fee) - (1-prob)*price
}

// KellyFraction sizes a position using half-Kelly, clamped to a quarter of
// bankroll. It returns 0 when the price already reflects the probability.
func KellyFraction(bankroll, prob, price float64) float64 {
	if prob <= price {
		return 0
	}
	odds := (1 - price) / price
	kelly := (odds*prob - (1 - prob)) / odds
	kelly /= 2
	if kelly < 0 {
		kelly = 0
	}
	if kelly > 0.25 {
		kelly = 0.25
	}
	return kelly * bankroll
}

// SortCross stably sorts cross-market opportunities by margin descending.
func SortCross(opps []domain.ArbitrageOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitMargin > opps[j].ProfitMargin
	})
}

// SortIntra stably sorts intra-market opportunities by margin descending.
func SortIntra(opps []domain.IntraMarketOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitMargin > opps[j].ProfitMargin
	})
}
