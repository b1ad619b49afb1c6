// Package detect orchestrates the matcher and the profit calculator into a
// single ranked detection pass over two market snapshots.
package detect

import (
	"log/slog"
	"sync"
	"time"

	"github.com/polyarb/arbscan/internal/domain"
	"github.com/polyarb/arbscan/internal/match"
	"github.com/polyarb/arbscan/internal/profit"
)

// Config holds the detection thresholds. All fields are mutable at runtime
// through the Detector setters.
type Config struct {
	// MinProfitMargin is the minimum net edge in percent (0.5 = 0.5%).
	MinProfitMargin float64
	// MinConfidence gates which matched pairs are evaluated.
	MinConfidence float64
	Fees          domain.FeeStructure
	BaseStake     float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinProfitMargin: 0.5,
		MinConfidence:   0.6,
		Fees:            domain.DefaultFees(),
		BaseStake:       profit.DefaultBaseStake,
	}
}

// Detector runs one detection cycle over two market lists. Detection is a
// pure function of its inputs and the current config; the mutex only guards
// runtime config updates.
type Detector struct {
	mu      sync.Mutex
	cfg     Config
	matcher *match.Matcher
	calc    *profit.Calculator
	logger  *slog.Logger
}

// NewDetector creates a Detector with the given config.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:     cfg,
		matcher: match.NewMatcher(),
		calc:    profit.NewCalculator(cfg.Fees, cfg.BaseStake),
		logger:  logger.With(slog.String("component", "detector")),
	}
}

// SetMinProfitMargin updates the margin threshold.
func (d *Detector) SetMinProfitMargin(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.MinProfitMargin = v
}

// SetMinConfidence updates the pair confidence threshold.
func (d *Detector) SetMinConfidence(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.MinConfidence = v
}

// SetFees replaces the fee structure.
func (d *Detector) SetFees(fees domain.FeeStructure) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Fees = fees
	d.calc.SetFees(fees)
}

// Config returns a copy of the current config.
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Detect matches the two lists, evaluates cross-market profit for every pair
// clearing the confidence threshold, evaluates the intra-market spread of
// every input market, and returns both lists ranked by margin.
func (d *Detector) Detect(kalshi, polymarket []domain.Market) domain.DetectionResult {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	pairs := d.matcher.Match(kalshi, polymarket)

	var cross []domain.ArbitrageOpportunity
	for _, pair := range pairs {
		if pair.Confidence < cfg.MinConfidence {
			continue
		}
		opp := d.calc.CrossMarket(pair)
		if opp == nil || opp.ProfitMargin < cfg.MinProfitMargin {
			continue
		}
		cross = append(cross, *opp)
	}

	var intra []domain.IntraMarketOpportunity
	for _, lists := range [][]domain.Market{kalshi, polymarket} {
		for _, m := range lists {
			opp := d.calc.IntraMarket(m)
			if opp == nil || opp.ProfitMargin < cfg.MinProfitMargin {
				continue
			}
			intra = append(intra, *opp)
		}
	}

	profit.SortCross(cross)
	profit.SortIntra(intra)

	result := domain.DetectionResult{
		CrossMarket:        cross,
		IntraMarket:        intra,
		TotalOpportunities: len(cross) + len(intra),
		Best:               best(cross, intra),
		DetectedAt:         time.Now().UTC(),
	}

	d.logger.Debug("detection cycle complete",
		slog.Int("pairs", len(pairs)),
		slog.Int("cross", len(cross)),
		slog.Int("intra", len(intra)),
	)
	return result
}

// best picks the head with the strictly larger margin; ties favor the
// cross-market head.
func best(cross []domain.ArbitrageOpportunity, intra []domain.IntraMarketOpportunity) *domain.BestOpportunity {
	switch {
	case len(cross) == 0 && len(intra) == 0:
		return nil
	case len(cross) == 0:
		return &domain.BestOpportunity{Intra: &intra[0]}
	case len(intra) == 0:
		return &domain.BestOpportunity{Cross: &cross[0]}
	case intra[0].ProfitMargin > cross[0].ProfitMargin:
		return &domain.BestOpportunity{Intra: &intra[0]}
	default:
		return &domain.BestOpportunity{Cross: &cross[0]}
	}
}
