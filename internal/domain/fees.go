package domain

// PlatformFees holds the flat fee rates charged by a single venue.
type PlatformFees struct {
	Taker float64
	Maker float64
}

// FeeStructure holds per-platform fee rates used by the profit calculator.
type FeeStructure struct {
	Kalshi     PlatformFees
	Polymarket PlatformFees
}

// DefaultFees returns the venue defaults: Kalshi charges roughly 1% taker on
// typical contract prices, Polymarket 2%.
func DefaultFees() FeeStructure {
	return FeeStructure{
		Kalshi:     PlatformFees{Taker: 0.01, Maker: 0},
		Polymarket: PlatformFees{Taker: 0.02, Maker: 0},
	}
}

// Taker returns the taker fee rate for the given platform.
func (f FeeStructure) Taker(p Platform) float64 {
	switch p {
	case PlatformKalshi:
		return f.Kalshi.Taker
	case PlatformPolymarket:
		return f.Polymarket.Taker
	default:
		return 0
	}
}
