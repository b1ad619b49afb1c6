// Package match pairs equivalent binary-outcome markets across the two
// venues using fuzzy title similarity, keyword overlap, and date/category
// agreement.
package match

import (
	"strings"
	"time"
	"unicode"

	"github.com/polyarb/arbscan/internal/domain"
)

// Confidence weights. They sum to 1.0 so the score stays in [0,1].
const (
	weightSimilarity = 0.5
	weightKeywords   = 0.2
	weightDate       = 0.2
	weightCategory   = 0.1
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "will": {}, "with": {},
	"this": {}, "that": {}, "from": {}, "have": {}, "been": {},
	"are": {}, "was": {}, "were": {}, "not": {}, "but": {},
	"win": {}, "who": {}, "what": {}, "when": {}, "where": {},
	"than": {}, "more": {}, "most": {}, "any": {}, "all": {},
}

// Normalize lowercases s, strips everything outside [a-z0-9 whitespace],
// collapses whitespace runs, and trims. It is idempotent.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// EditDistance computes the Levenshtein distance between a and b.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity scores two strings in [0,1] after normalization: 1 for equal
// (including both empty), else 1 - distance/maxLen.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	return 1 - float64(EditDistance(na, nb))/float64(maxLen)
}

// Keywords extracts the significant tokens of s: normalized, whitespace-split,
// stop words and tokens of length <= 2 dropped.
func Keywords(s string) []string {
	fields := strings.Fields(Normalize(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// KeywordOverlap returns |keywords(a) ∩ keywords(b)| / min(|a|,|b|), or 0
// when either side has no keywords.
func KeywordOverlap(a, b string) float64 {
	ka, kb := Keywords(a), Keywords(b)
	if len(ka) == 0 || len(kb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ka))
	for _, k := range ka {
		set[k] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(kb))
	for _, k := range kb {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(min(len(set), len(seen)))
}

// DatesEqual reports whether both dates are present and fall on the same
// calendar day.
func DatesEqual(d1, d2 *time.Time) bool {
	if d1 == nil || d2 == nil {
		return false
	}
	y1, m1, day1 := d1.Date()
	y2, m2, day2 := d2.Date()
	return y1 == y2 && m1 == m2 && day1 == day2
}

// Confidence scores how likely two markets describe the same event:
// 0.5·title similarity + 0.2·keyword overlap + 0.2·same end date +
// 0.1·same category (case-insensitive).
func Confidence(m1, m2 domain.Market) float64 {
	score := weightSimilarity*Similarity(m1.Title, m2.Title) +
		weightKeywords*KeywordOverlap(m1.Title, m2.Title)
	if DatesEqual(m1.EndDate, m2.EndDate) {
		score += weightDate
	}
	if m1.Category != "" && strings.EqualFold(m1.Category, m2.Category) {
		score += weightCategory
	}
	return score
}
