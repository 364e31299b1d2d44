package sentiment

import (
	"context"
	"math"
	"time"

	"signal-advisor/internal/logger"
	"signal-advisor/internal/trace"
	"signal-advisor/internal/types"
)

const (
	// MaxLookback bounds the news window considered per evaluation.
	MaxLookback = 7 * 24 * time.Hour

	// recentWindowMinutes splits the momentum calculation into a recent
	// and an older half.
	recentWindowMinutes = 120.0

	// breakingImpactScore is the impact-score floor for the breaking-news
	// multiplier.
	breakingImpactScore = 0.7
)

// SessionClock describes the exchange session clock used to classify a
// publication instant as market-hours, pre-market, or after-hours.
type SessionClock struct {
	Location      *time.Location
	PreMarketOpen int // minutes from midnight
	MarketOpen    int
	MarketClose   int
}

// Engine computes time-weighted sentiment from pre-scored news items.
type Engine struct {
	clock SessionClock
}

// NewEngine creates a sentiment decay engine for the given session clock.
func NewEngine(clock SessionClock) *Engine {
	if clock.Location == nil {
		clock.Location = time.FixedZone("IST", 19800)
	}
	return &Engine{clock: clock}
}

// Evaluate folds the items mentioning instrument into one weighted sentiment
// result at the given instant. An empty or fully-discarded item set yields
// the neutral result, never an error.
func (e *Engine) Evaluate(ctx context.Context, profile *DecayProfile, instrument string, at time.Time, items []types.NewsItem) types.SentimentResult {
	ctx, span := trace.StartSpan(ctx, "sentiment.Evaluate")
	defer span.End()

	res := types.SentimentResult{
		Instrument:  instrument,
		EvaluatedAt: at.Unix(),
	}

	var weightedSum, totalWeight float64
	var recent, older []float64

	for _, item := range items {
		if !item.Mentions(instrument) {
			continue
		}

		elapsed := at.Sub(time.Unix(item.PublishedAt, 0)).Minutes()
		if elapsed < 0 {
			// Clock skew between feed and evaluator; treat as just published.
			elapsed = 0
		}
		if elapsed > MaxLookback.Minutes() {
			continue
		}

		w := e.itemWeight(profile, item, elapsed)
		if w < profile.MinImpactThreshold {
			continue
		}

		weightedSum += item.Sentiment * w
		totalWeight += w
		res.ItemCount++

		if elapsed <= recentWindowMinutes {
			recent = append(recent, item.Sentiment)
			res.RecentCount++
		} else {
			older = append(older, item.Sentiment)
		}
	}

	if totalWeight == 0 {
		logger.Debug(ctx, "No qualifying news, neutral sentiment", "instrument", instrument)
		return res
	}

	res.Score = weightedSum / totalWeight
	res.TotalWeight = totalWeight
	// Saturating normalization, not a statistical confidence interval.
	res.Confidence = math.Min(1.0, totalWeight/2.0)
	res.Momentum = momentum(recent, older)

	logger.Debug(ctx, "Sentiment evaluated",
		"instrument", instrument,
		"score", res.Score,
		"confidence", res.Confidence,
		"momentum", res.Momentum,
		"items", res.ItemCount,
	)
	return res
}

// itemWeight is decay × bucket weight × timing multiplier × breaking-news
// multiplier for a single item.
func (e *Engine) itemWeight(p *DecayProfile, item types.NewsItem, elapsedMinutes float64) float64 {
	w := math.Exp(-math.Ln2 / p.HalfLifeMinutes * elapsedMinutes)

	switch {
	case elapsedMinutes <= 15:
		w *= p.Weight15Min
	case elapsedMinutes <= 60:
		w *= p.Weight1Hour
	case elapsedMinutes <= 240:
		w *= p.Weight4Hour
	default:
		w *= p.WeightRestOfDay
	}

	w *= e.timingMultiplier(p, item.PublishedAt)

	if (item.Impact == types.ImpactHigh || item.Impact == types.ImpactVeryHigh) && item.ImpactScore > breakingImpactScore {
		w *= p.BreakingNewsBoost
	}
	return w
}

// timingMultiplier classifies the publication clock time. After-hours is the
// 1.0 baseline.
func (e *Engine) timingMultiplier(p *DecayProfile, publishedAt int64) float64 {
	t := time.Unix(publishedAt, 0).In(e.clock.Location)
	minutes := t.Hour()*60 + t.Minute()

	switch {
	case minutes >= e.clock.MarketOpen && minutes < e.clock.MarketClose:
		return p.MarketHoursBoost
	case minutes >= e.clock.PreMarketOpen && minutes < e.clock.MarketOpen:
		return p.PreMarketBoost
	default:
		return 1.0
	}
}

// momentum is the recent mean minus the older mean, 0 when either side is
// empty.
func momentum(recent, older []float64) float64 {
	if len(recent) == 0 || len(older) == 0 {
		return 0
	}
	return mean(recent) - mean(older)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
