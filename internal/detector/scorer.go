package detector

import (
	"fmt"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/store"
)

// notabilityCutoffs are the per-feature scores above which a feature is
// reported as a contributing factor. They are fixed and deliberately
// asymmetric; they are not derived from the alert threshold.
var notabilityCutoffs = map[string]float64{
	FeatureTradeSizeVsMedian:     0.7,
	FeatureTradeSizeVsDepth:      0.5,
	FeatureAggressiveness:        0.7,
	FeatureWalletBurst:           0.5,
	FeaturePositionConcentration: 0.3,
	FeatureRampSpeed:             0.5,
	FeatureWalletFreshness:       0.7,
	FeatureDollarValue:           0.7,
	FeatureTimingVsMarketEnd:     0.7,
}

// Scorer combines the feature bank into one bounded score and an alert
// decision. It is stateless after construction; Score may be called
// concurrently and is idempotent for identical inputs.
type Scorer struct {
	cfg   *config.Scoring
	order []string
}

// NewScorer validates the weight table against the feature bank and
// fixes the evaluation order. Configuration errors fail here, once, not
// per trade.
func NewScorer(cfg *config.Scoring) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for name := range cfg.Weights {
		if _, ok := featureFuncs[name]; !ok {
			return nil, fmt.Errorf("unknown feature %q in weight table", name)
		}
	}

	// Weighted features evaluate in the fixed table order so reason
	// tie-breaking is stable across runs.
	order := make([]string, 0, len(cfg.Weights))
	for _, name := range FeatureOrder {
		if _, ok := cfg.Weights[name]; ok {
			order = append(order, name)
		}
	}

	return &Scorer{cfg: cfg, order: order}, nil
}

// Threshold maps a sensitivity dial in [0,1] to the alert score
// threshold. Out-of-range sensitivities are clamped.
func (s *Scorer) Threshold(sensitivity float64) float64 {
	return s.cfg.ThresholdBase + clamp01(sensitivity)*s.cfg.ThresholdSlope
}

// Score evaluates a trade with the configured default sensitivity.
func (s *Scorer) Score(t store.Trade, m store.MarketState, c store.Context) store.ScoringResult {
	return s.ScoreWithSensitivity(t, m, c, s.cfg.DefaultSensitivity)
}

// ScoreWithSensitivity runs every configured feature, combines them via
// the weight table, applies the must-flag override, and produces ranked
// human-readable reasons.
func (s *Scorer) ScoreWithSensitivity(t store.Trade, m store.MarketState, c store.Context, sensitivity float64) store.ScoringResult {
	features := make(map[string]store.FeatureResult, len(s.order))
	total := 0.0
	var factors []string

	// Primary contributor: highest score x weight; ties keep the first
	// feature in table order.
	bestName := ""
	bestProduct := -1.0

	for _, name := range s.order {
		fr := featureFuncs[name](t, m, c)
		fr.Score = clamp01(fr.Score)
		features[name] = fr

		weight := s.cfg.Weights[name]
		total += weight * fr.Score

		if fr.Score > notabilityCutoffs[name] {
			factors = append(factors, fr.Description)
		}
		if product := fr.Score * weight; product > bestProduct {
			bestProduct = product
			bestName = name
		}
	}

	// Each feature is in [0,1] and weights sum to 1, so total is
	// already bounded; the clamp guards against float drift only.
	total = clamp01(total)

	mustFlag, mustFlagReason := EvaluateMustFlag(t, c, s.cfg.MustFlag)
	threshold := s.Threshold(sensitivity)

	primary := featureDescriptions[bestName]
	if mustFlag {
		primary = mustFlagReason
	}

	return store.ScoringResult{
		Score:          total,
		Features:       features,
		ShouldAlert:    mustFlag || total >= threshold,
		PrimaryReason:  primary,
		Factors:        factors,
		MustFlag:       mustFlag,
		MustFlagReason: mustFlagReason,
	}
}
