// Package composer fuses technical indicator votes with time-decayed news
// sentiment into one directional signal per instrument per evaluation
// instant. Missing inputs degrade to HOLD, never to a failed evaluation.
package composer

import (
	"context"
	"fmt"
	"math"
	"time"

	"signal-advisor/internal/indicator"
	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/logger"
	"signal-advisor/internal/sentiment"
	"signal-advisor/internal/signallog"
	"signal-advisor/internal/store"
	"signal-advisor/internal/types"
)

// Confidence caps and floors, on the 0-100 scale used throughout the
// composer.
const (
	strongTierStrength = 70.0
	plainTierStrength  = 60.0
	strongTierCap      = 90.0
	plainTierCap       = 80.0

	sentimentConfidenceFloor = 0.3
	strongSentiment          = 0.3
	upgradeSentConfidence    = 0.6
	opposingDiscount         = 0.7
	momentumThreshold        = 0.2
	momentumAdjust           = 5.0
	newsVolumeAdjust         = 3.0
	newsVolumeFloor          = 3
)

// Options are the per-caller overrides (personalization is configuration
// injection, not a subsystem).
type Options struct {
	MinConfidence float64 // 0 means use the configured default
	ProfileName   string  // "" means use the configured default profile
}

// Composer evaluates one instrument at one instant. Stateless across calls
// except for the signals it persists.
type Composer struct {
	cfg     *store.Config
	bars    interfaces.BarFeed
	news    interfaces.NewsFeed
	engine  *sentiment.Engine
	cache   *sentiment.Cache
	signals interfaces.SignalStore
	inds    interfaces.IndicatorStore // optional snapshot persistence
	scorers []interfaces.Scorer
	params  indicator.Params
	opts    Options
}

var _ interfaces.Composer = (*Composer)(nil)

// New creates a composer wired to its feeds and store. Extra scorers (e.g. a
// model predictor) vote alongside the built-in technical scorer.
func New(cfg *store.Config, bars interfaces.BarFeed, news interfaces.NewsFeed, signals interfaces.SignalStore, extra ...interfaces.Scorer) *Composer {
	open, _ := store.ParseClock(cfg.Session.Open)
	preOpen, _ := store.ParseClock(cfg.Session.PreMarketOpen)
	cls, _ := store.ParseClock(cfg.Session.Close)

	return &Composer{
		cfg:  cfg,
		bars: bars,
		news: news,
		engine: sentiment.NewEngine(sentiment.SessionClock{
			Location:      cfg.Location(),
			PreMarketOpen: preOpen,
			MarketOpen:    open,
			MarketClose:   cls,
		}),
		cache:   sentiment.NewCache(time.Duration(cfg.Sentiment.CacheMinutes) * time.Minute),
		signals: signals,
		scorers: append([]interfaces.Scorer{TechnicalScorer{}}, extra...),
		params: indicator.Params{
			RSIPeriod:  cfg.Indicators.RSIPeriod,
			SMAWindows: cfg.Indicators.SMAWindows,
			EMAWindows: cfg.Indicators.EMAWindows,
			MACDFast:   cfg.Indicators.MACDFast,
			MACDSlow:   cfg.Indicators.MACDSlow,
			MACDSignal: cfg.Indicators.MACDSignal,
			BBWindow:   cfg.Indicators.BBWindow,
			BBStdDev:   cfg.Indicators.BBStdDev,
		},
	}
}

// WithIndicatorStore enables indicator snapshot persistence.
func (c *Composer) WithIndicatorStore(s interfaces.IndicatorStore) *Composer {
	c.inds = s
	return c
}

// WithOptions applies per-caller overrides.
func (c *Composer) WithOptions(opts Options) *Composer {
	c.opts = opts
	return c
}

// Evaluate runs the full composition pipeline for one instrument. Missing
// bars or news yield a HOLD evaluation, not an error; the returned error is
// reserved for persistence failures.
func (c *Composer) Evaluate(ctx context.Context, instrument string, at time.Time) (*types.Evaluation, error) {
	session := at.In(c.cfg.Location()).Format("2006-01-02")

	ev := &types.Evaluation{
		Instrument: instrument,
		Session:    session,
		Action:     types.Hold,
		Trend:      types.TrendNeutral,
		Time:       at.Unix(),
	}

	bars, err := c.bars.Bars(ctx, instrument, session)
	if err != nil || len(bars) == 0 {
		if err != nil {
			logger.ErrorWithErr(ctx, "Bar feed unavailable, holding", err, "instrument", instrument)
		}
		ev.Reason = "no bar data"
		c.record(ctx, ev)
		return ev, nil
	}

	inds := indicator.Compute(bars, c.params)
	if c.inds != nil {
		if err := c.inds.UpsertIndicators(ctx, indicator.Snapshots(instrument, session, bars, c.params)); err != nil {
			logger.Warn(ctx, "Indicator snapshot upsert failed", "instrument", instrument, "error", err)
		}
	}

	latest := bars[len(bars)-1]
	price := latest.Close

	// 1. Technical scoring.
	var votes []interfaces.Vote
	for _, scorer := range c.scorers {
		vs, err := scorer.Score(ctx, instrument, latest, inds)
		if err != nil {
			logger.Warn(ctx, "Scorer failed, skipping", "instrument", instrument, "error", err)
			continue
		}
		votes = append(votes, vs...)
	}
	trend, strength := tallyVotes(votes)
	ev.Trend = trend

	// 2. Time-of-day damping.
	damping := c.entryDamping(at)
	strength *= damping
	ev.Strength = strength

	// 3. Base signal from damped strength.
	action, confidence := baseSignal(trend, strength, c.cfg.Composer.HoldConfidence)
	ev.Reason = fmt.Sprintf("trend=%s strength=%.1f", trend, strength)

	// 4. Entry-window filter.
	inWindow := damping > 0
	if action != types.Hold && !inWindow {
		ev.RawConfidence = confidence
		ev.Action = types.Hold
		ev.Confidence = 0
		ev.Reason = "outside entry window"
		c.record(ctx, ev)
		return ev, nil
	}

	// 5. Minimum-confidence filter. The numeric confidence is preserved for
	// diagnostics.
	minConf := c.cfg.Composer.MinConfidence
	if c.opts.MinConfidence > 0 {
		minConf = c.opts.MinConfidence
	}
	if action != types.Hold && confidence < minConf {
		ev.RawConfidence = confidence
		action = types.Hold
		confidence = c.cfg.Composer.HoldConfidence
		ev.Reason += " | below min confidence"
	}

	// 6. Sentiment fusion.
	if c.cfg.Sentiment.Enabled {
		sent := c.sentimentFor(ctx, instrument, at)
		ev.Sentiment = &sent
		action, confidence = c.fuse(ev, action, confidence, sent, inWindow)
	}
	confidence = clamp(confidence, 0, 100)

	ev.Action = action
	ev.Confidence = confidence
	if ev.RawConfidence == 0 {
		ev.RawConfidence = confidence
	}

	// 7. Risk parameterization and persistence for actionable signals.
	if action != types.Hold {
		c.riskParams(ev, action, price)
		sig := &types.TradingSignal{
			Instrument: instrument,
			Session:    session,
			Direction:  action,
			Confidence: confidence,
			Entry:      ev.Entry,
			Target:     ev.Target,
			Stop:       ev.Stop,
			CreatedAt:  at.Unix(),
		}
		id, err := c.signals.CreateSignal(ctx, sig)
		if err != nil {
			return nil, fmt.Errorf("persist signal for %s: %w", instrument, err)
		}
		ev.SignalID = id
	}

	logger.Decision(ctx, instrument, string(action), confidence, ev.Reason,
		"session", session, "trend", string(trend), "strength", strength)
	c.record(ctx, ev)
	return ev, nil
}

// sentimentFor evaluates (or reuses) the decayed sentiment for an
// instrument. Feed failures yield the neutral result.
func (c *Composer) sentimentFor(ctx context.Context, instrument string, at time.Time) types.SentimentResult {
	if cached, ok := c.cache.Get(instrument); ok {
		return cached
	}

	profile, err := c.cfg.Profile(c.opts.ProfileName)
	if err != nil {
		logger.ErrorWithErr(ctx, "Unknown decay profile, neutral sentiment", err, "instrument", instrument)
		return types.SentimentResult{Instrument: instrument, EvaluatedAt: at.Unix()}
	}

	lookback := time.Duration(c.cfg.Sentiment.LookbackHours) * time.Hour
	items, err := c.news.ItemsFor(ctx, instrument, at.Add(-lookback), at)
	if err != nil {
		logger.ErrorWithErr(ctx, "News feed unavailable, neutral sentiment", err, "instrument", instrument)
		return types.SentimentResult{Instrument: instrument, EvaluatedAt: at.Unix()}
	}

	result := c.engine.Evaluate(ctx, profile, instrument, at, items)
	c.cache.Set(instrument, result)
	return result
}

// fuse applies the sentiment rule table to the technical action.
func (c *Composer) fuse(ev *types.Evaluation, action types.Direction, confidence float64, sent types.SentimentResult, inWindow bool) (types.Direction, float64) {
	sameDirection := (action == types.Buy && sent.Score > 0) || (action == types.Sell && sent.Score < 0)
	opposing := (action == types.Buy && sent.Score < -strongSentiment) ||
		(action == types.Sell && sent.Score > strongSentiment)

	switch {
	case action != types.Hold && opposing:
		// Strong disagreement demotes the signal.
		ev.RawConfidence = confidence
		confidence *= opposingDiscount
		action = types.Hold
		ev.Reason += fmt.Sprintf(" | opposing sentiment %.2f", sent.Score)

	case action != types.Hold && sameDirection && sent.Confidence > sentimentConfidenceFloor:
		impactWeight := 0.2
		if confidence >= plainTierCap {
			impactWeight = 0.1
		}
		boost := impactWeight * math.Abs(sent.Score) * sent.Confidence * 100.0
		confidence += boost
		ev.Reason += fmt.Sprintf(" | sentiment boost +%.1f", boost)

	case action == types.Hold && inWindow &&
		math.Abs(sent.Score) > strongSentiment && sent.Confidence > upgradeSentConfidence:
		// Sufficiently strong unopposed sentiment upgrades a HOLD; the
		// confidence comes from the sentiment strength alone.
		if sent.Score > 0 {
			action = types.Buy
		} else {
			action = types.Sell
		}
		confidence = 40.0 + 40.0*math.Abs(sent.Score)*sent.Confidence
		ev.Reason += fmt.Sprintf(" | sentiment upgrade %.2f", sent.Score)
	}

	if action != types.Hold {
		if (action == types.Buy && sent.Momentum > momentumThreshold) ||
			(action == types.Sell && sent.Momentum < -momentumThreshold) {
			confidence += momentumAdjust
		} else if (action == types.Buy && sent.Momentum < -momentumThreshold) ||
			(action == types.Sell && sent.Momentum > momentumThreshold) {
			confidence -= momentumAdjust
		}
		if sent.RecentCount >= newsVolumeFloor {
			confidence += newsVolumeAdjust
		}
	}
	return action, confidence
}

// riskParams fills entry, stop, target, position size, and risk/reward.
func (c *Composer) riskParams(ev *types.Evaluation, action types.Direction, price float64) {
	stopPct := c.cfg.Composer.StopPct / 100.0
	targetPct := c.cfg.Composer.TargetPct / 100.0

	ev.Entry = price
	if action == types.Buy {
		ev.Stop = price * (1 - stopPct)
		ev.Target = price * (1 + targetPct)
	} else {
		ev.Stop = price * (1 + stopPct)
		ev.Target = price * (1 - targetPct)
	}
	ev.PositionPct = c.cfg.Composer.MaxPositionPct * ev.Confidence / 100.0
	if ev.PositionPct > c.cfg.Composer.MaxPositionPct {
		ev.PositionPct = c.cfg.Composer.MaxPositionPct
	}

	risk := math.Abs(ev.Entry - ev.Stop)
	if risk == 0 {
		ev.RiskReward = 0
		return
	}
	ev.RiskReward = math.Abs(ev.Target-ev.Entry) / risk
}

// entryDamping is 1.0 at session open, decaying linearly to 0.5 at the last
// allowed entry, and 0 outside the window.
func (c *Composer) entryDamping(at time.Time) float64 {
	open, _ := store.ParseClock(c.cfg.Session.Open)
	lastEntry, _ := store.ParseClock(c.cfg.Session.LastEntry)

	t := at.In(c.cfg.Location())
	m := t.Hour()*60 + t.Minute()
	if m < open || m > lastEntry {
		return 0
	}
	span := float64(lastEntry - open)
	if span == 0 {
		return 1.0
	}
	return 1.0 - 0.5*float64(m-open)/span
}

// baseSignal maps damped strength and trend to an action and confidence.
func baseSignal(trend types.TrendLabel, strength, holdConfidence float64) (types.Direction, float64) {
	bullish := trend == types.TrendBullish || trend == types.TrendStrongBullish
	bearish := trend == types.TrendBearish || trend == types.TrendStrongBearish
	strong := trend == types.TrendStrongBullish || trend == types.TrendStrongBearish

	switch {
	case strength >= strongTierStrength && strong:
		if bullish {
			return types.Buy, math.Min(strongTierCap, strength)
		}
		return types.Sell, math.Min(strongTierCap, strength)
	case strength >= plainTierStrength && (bullish || bearish):
		if bullish {
			return types.Buy, math.Min(plainTierCap, strength)
		}
		return types.Sell, math.Min(plainTierCap, strength)
	default:
		return types.Hold, holdConfidence
	}
}

// record appends the evaluation to the daily decision log; log noise must
// never fail the evaluation.
func (c *Composer) record(ctx context.Context, ev *types.Evaluation) {
	if err := signallog.Append(*ev); err != nil {
		logger.Debug(ctx, "Decision log append failed", "error", err)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
