package domain

// MatchReason classifies why two markets were paired.
type MatchReason string

const (
	MatchReasonExact           MatchReason = "exact"
	MatchReasonSimilar         MatchReason = "similar"
	MatchReasonKeywordOverlap  MatchReason = "keyword overlap"
	MatchReasonMultipleSignals MatchReason = "multiple signals"
)

// MarketPair links at most one market per platform with the confidence the
// matcher assigned to the pairing.
type MarketPair struct {
	Kalshi     *Market
	Polymarket *Market

	// Confidence is the scorer's match quality, in [0,1].
	Confidence float64
	Reason     MatchReason
}
