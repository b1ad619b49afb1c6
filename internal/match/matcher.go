package match

import (
	"sort"

	"github.com/polyarb/arbscan/internal/domain"
)

// MatchThreshold is the minimum confidence for the matcher to claim a pair.
const MatchThreshold = 0.6

// Reason thresholds, checked in priority order.
const (
	exactSimilarity   = 0.9
	similarSimilarity = 0.7
	keywordThreshold  = 0.7
)

// Matcher greedily pairs Kalshi markets with Polymarket markets. It walks the
// Kalshi list in its given order and claims the best-scoring unclaimed
// Polymarket candidate, so the assignment is one-to-one but not globally
// optimal.
type Matcher struct{}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher { return &Matcher{} }

// Match pairs the two market lists and returns pairs sorted by confidence
// descending. No market appears in more than one pair.
func (m *Matcher) Match(kalshi, polymarket []domain.Market) []domain.MarketPair {
	claimed := make([]bool, len(polymarket))
	pairs := make([]domain.MarketPair, 0, len(kalshi))

	for i := range kalshi {
		bestIdx := -1
		bestScore := 0.0
		for j := range polymarket {
			if claimed[j] {
				continue
			}
			score := Confidence(kalshi[i], polymarket[j])
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx < 0 || bestScore <= MatchThreshold {
			continue
		}
		claimed[bestIdx] = true
		pairs = append(pairs, domain.MarketPair{
			Kalshi:     &kalshi[i],
			Polymarket: &polymarket[bestIdx],
			Confidence: bestScore,
			Reason:     classifyReason(kalshi[i], polymarket[bestIdx]),
		})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Confidence > pairs[j].Confidence
	})
	return pairs
}

// classifyReason labels a pair by its strongest matching signal.
func classifyReason(m1, m2 domain.Market) domain.MatchReason {
	sim := Similarity(m1.Title, m2.Title)
	switch {
	case sim > exactSimilarity:
		return domain.MatchReasonExact
	case sim > similarSimilarity:
		return domain.MatchReasonSimilar
	case KeywordOverlap(m1.Title, m2.Title) > keywordThreshold:
		return domain.MatchReasonKeywordOverlap
	default:
		return domain.MatchReasonMultipleSignals
	}
}

// Unmatched returns the markets on each side that no pair claimed.
func Unmatched(kalshi, polymarket []domain.Market, pairs []domain.MarketPair) (kalshiOut, polyOut []domain.Market) {
	usedK := make(map[string]struct{}, len(pairs))
	usedP := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if p.Kalshi != nil {
			usedK[p.Kalshi.ID] = struct{}{}
		}
		if p.Polymarket != nil {
			usedP[p.Polymarket.ID] = struct{}{}
		}
	}
	for _, m := range kalshi {
		if _, ok := usedK[m.ID]; !ok {
			kalshiOut = append(kalshiOut, m)
		}
	}
	for _, m := range polymarket {
		if _, ok := usedP[m.ID]; !ok {
			polyOut = append(polyOut, m)
		}
	}
	return kalshiOut, polyOut
}
