package sentiment

import (
	"fmt"
	"math"
)

// weightSumTolerance is the allowed deviation of the four period weights
// from 1.0.
const weightSumTolerance = 0.05

// DecayProfile controls how news sentiment decays with age. Profiles are
// named in configuration and switchable at call time.
type DecayProfile struct {
	Name string `yaml:"-"`

	HalfLifeMinutes float64 `yaml:"half_life_minutes"`

	// Period weights by elapsed-time bucket. Must sum to 1.0 within 5%.
	// These multiply the exponential decay, deliberately double-weighting
	// very recent news.
	Weight15Min     float64 `yaml:"weight_15min"`
	Weight1Hour     float64 `yaml:"weight_1h"`
	Weight4Hour     float64 `yaml:"weight_4h"`
	WeightRestOfDay float64 `yaml:"weight_rest"`

	// Context multipliers.
	BreakingNewsBoost float64 `yaml:"breaking_news_boost"`
	MarketHoursBoost  float64 `yaml:"market_hours_boost"`
	PreMarketBoost    float64 `yaml:"pre_market_boost"`

	// Items whose final weight falls below this threshold are discarded.
	MinImpactThreshold float64 `yaml:"min_impact_threshold"`
}

// WeightSum returns the sum of the four period weights.
func (p *DecayProfile) WeightSum() float64 {
	return p.Weight15Min + p.Weight1Hour + p.Weight4Hour + p.WeightRestOfDay
}

// Validate rejects profiles that violate the weight-sum invariant or carry
// out-of-range parameters. Invalid profiles are never silently clamped.
func (p *DecayProfile) Validate() error {
	if p.HalfLifeMinutes <= 0 {
		return fmt.Errorf("decay profile %q: half_life_minutes must be > 0, got %.2f", p.Name, p.HalfLifeMinutes)
	}
	if sum := p.WeightSum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("decay profile %q: period weights must sum to 1.0 ±%.2f, got %.4f",
			p.Name, weightSumTolerance, sum)
	}
	for _, w := range []float64{p.Weight15Min, p.Weight1Hour, p.Weight4Hour, p.WeightRestOfDay} {
		if w < 0 {
			return fmt.Errorf("decay profile %q: period weights must be non-negative", p.Name)
		}
	}
	if p.MinImpactThreshold < 0 || p.MinImpactThreshold >= 1 {
		return fmt.Errorf("decay profile %q: min_impact_threshold must be in [0,1), got %.2f",
			p.Name, p.MinImpactThreshold)
	}
	if p.BreakingNewsBoost < 1 || p.MarketHoursBoost < 1 || p.PreMarketBoost < 1 {
		return fmt.Errorf("decay profile %q: context multipliers must be >= 1.0", p.Name)
	}
	return nil
}

// DefaultProfile returns the built-in balanced profile.
func DefaultProfile() *DecayProfile {
	return &DecayProfile{
		Name:               "default",
		HalfLifeMinutes:    120,
		Weight15Min:        0.4,
		Weight1Hour:        0.3,
		Weight4Hour:        0.2,
		WeightRestOfDay:    0.1,
		BreakingNewsBoost:  1.5,
		MarketHoursBoost:   1.2,
		PreMarketBoost:     1.1,
		MinImpactThreshold: 0.01,
	}
}
