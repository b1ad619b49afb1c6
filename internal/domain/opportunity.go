package domain

import "time"

// OutcomeSide is one side of a binary market.
type OutcomeSide string

const (
	SideYes OutcomeSide = "yes"
	SideNo  OutcomeSide = "no"
)

// TradeLeg is one half of a cross-market trade directive.
type TradeLeg struct {
	Platform Platform
	Side     OutcomeSide
	Price    float64
}

// TradeDirective describes the two legs needed to lock in a cross-market edge.
type TradeDirective struct {
	BuyLeg  TradeLeg
	SellLeg TradeLeg
}

// ArbitrageOpportunity is a cross-market opportunity: equivalent events priced
// apart on the two venues after taker fees.
type ArbitrageOpportunity struct {
	ID         string
	Kalshi     Market
	Polymarket Market
	Directive  TradeDirective

	// ProfitMargin is the net edge in percent.
	ProfitMargin    float64
	RequiredCapital float64
	ExpectedProfit  float64
	Confidence      float64
	DetectedAt      time.Time
}

// IntraMarketOpportunity is a single market whose yes+no cost sums below 1
// after fees.
type IntraMarketOpportunity struct {
	ID     string
	Market Market

	YesPrice     float64
	NoPrice      float64
	Spread       float64
	ProfitMargin float64
	DetectedAt   time.Time
}

// DetectionResult is the ranked output of one detection cycle. A prior
// cycle's result is discarded wholesale, never updated in place.
type DetectionResult struct {
	CrossMarket        []ArbitrageOpportunity
	IntraMarket        []IntraMarketOpportunity
	TotalOpportunities int

	// Best is the single opportunity with the largest profit margin across
	// both lists, or nil when the cycle found nothing.
	Best       *BestOpportunity
	DetectedAt time.Time
}

// BestOpportunity points at the top-ranked opportunity of a cycle. Exactly
// one of Cross/Intra is set.
type BestOpportunity struct {
	Cross *ArbitrageOpportunity
	Intra *IntraMarketOpportunity
}

// ProfitMargin returns the margin of whichever opportunity kind is set.
func (b *BestOpportunity) ProfitMargin() float64 {
	if b == nil {
		return 0
	}
	if b.Cross != nil {
		return b.Cross.ProfitMargin
	}
	if b.Intra != nil {
		return b.Intra.ProfitMargin
	}
	return 0
}
