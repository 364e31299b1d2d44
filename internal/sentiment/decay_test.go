package sentiment

import (
	"context"
	"math"
	"testing"
	"time"

	"signal-advisor/internal/types"
)

// Test clock: IST session, pre-market 08:00, open 09:15, close 15:30.
func testClock() SessionClock {
	return SessionClock{
		Location:      time.FixedZone("IST", 19800),
		PreMarketOpen: 8 * 60,
		MarketOpen:    9*60 + 15,
		MarketClose:   15*60 + 30,
	}
}

// afterHoursInstant returns an evaluation instant at 20:00 IST so published
// items also fall after hours and the timing multiplier stays 1.0.
func afterHoursInstant() time.Time {
	ist := time.FixedZone("IST", 19800)
	return time.Date(2026, 8, 28, 20, 0, 0, 0, ist)
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DecayProfile)
		wantErr bool
	}{
		{"default valid", func(p *DecayProfile) {}, false},
		{"weights sum high", func(p *DecayProfile) { p.Weight15Min = 0.6 }, true},
		{"weights sum within tolerance", func(p *DecayProfile) { p.Weight15Min = 0.44 }, false},
		{"zero half life", func(p *DecayProfile) { p.HalfLifeMinutes = 0 }, true},
		{"negative weight", func(p *DecayProfile) { p.Weight15Min = -0.1; p.Weight1Hour = 0.8 }, true},
		{"threshold out of range", func(p *DecayProfile) { p.MinImpactThreshold = 1.0 }, true},
		{"multiplier below one", func(p *DecayProfile) { p.BreakingNewsBoost = 0.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestEvaluate_EmptyNewsIsNeutral(t *testing.T) {
	eng := NewEngine(testClock())
	res := eng.Evaluate(context.Background(), DefaultProfile(), "RELIANCE", afterHoursInstant(), nil)

	if res.Score != 0 || res.Confidence != 0 || res.ItemCount != 0 {
		t.Errorf("expected neutral result, got score=%f confidence=%f count=%d",
			res.Score, res.Confidence, res.ItemCount)
	}
}

// A single qualifying item: the weight cancels in the average so the score
// equals the item's sentiment exactly, and the confidence reflects the
// breaking-news-boosted weight.
func TestEvaluate_SingleBreakingItem(t *testing.T) {
	eng := NewEngine(testClock())
	profile := DefaultProfile()
	at := afterHoursInstant()

	item := types.NewsItem{
		Instruments: []string{"RELIANCE"},
		PublishedAt: at.Add(-10 * time.Minute).Unix(),
		Sentiment:   0.8,
		Impact:      types.ImpactVeryHigh,
		ImpactScore: 0.9,
	}
	res := eng.Evaluate(context.Background(), profile, "RELIANCE", at, []types.NewsItem{item})

	if res.Score != 0.8 {
		t.Errorf("single item score must equal sentiment exactly, got %f", res.Score)
	}
	if res.ItemCount != 1 || res.RecentCount != 1 {
		t.Errorf("expected item counts 1/1, got %d/%d", res.ItemCount, res.RecentCount)
	}

	// decay(10min) x 15-min bucket x after-hours 1.0 x breaking boost
	wantWeight := math.Exp(-math.Ln2/120*10) * 0.4 * 1.0 * 1.5
	if math.Abs(res.TotalWeight-wantWeight) > 1e-12 {
		t.Errorf("weight = %f, expected %f", res.TotalWeight, wantWeight)
	}
	if math.Abs(res.Confidence-math.Min(1.0, wantWeight/2.0)) > 1e-12 {
		t.Errorf("confidence = %f does not reflect boosted weight", res.Confidence)
	}
}

func TestEvaluate_WeightMonotonicInElapsed(t *testing.T) {
	eng := NewEngine(testClock())
	profile := DefaultProfile()
	at := afterHoursInstant()

	weightAt := func(age time.Duration) float64 {
		item := types.NewsItem{
			Instruments: []string{"TCS"},
			PublishedAt: at.Add(-age).Unix(),
			Sentiment:   0.5,
			Impact:      types.ImpactMedium,
		}
		res := eng.Evaluate(context.Background(), profile, "TCS", at, []types.NewsItem{item})
		return res.TotalWeight
	}

	prev := weightAt(1 * time.Minute)
	for _, age := range []time.Duration{5, 10, 14, 30, 55, 120, 235, 300, 600} {
		w := weightAt(age * time.Minute)
		if w > prev {
			t.Errorf("weight increased with age at %v: %f > %f", age*time.Minute, w, prev)
		}
		prev = w
	}
}

func TestEvaluate_ClockSkewClampsToZero(t *testing.T) {
	eng := NewEngine(testClock())
	profile := DefaultProfile()
	at := afterHoursInstant()

	// Published "in the future" relative to the evaluation instant.
	future := types.NewsItem{
		Instruments: []string{"INFY"},
		PublishedAt: at.Add(5 * time.Minute).Unix(),
		Sentiment:   -0.6,
		Impact:      types.ImpactLow,
	}
	res := eng.Evaluate(context.Background(), profile, "INFY", at, []types.NewsItem{future})

	if res.ItemCount != 1 {
		t.Fatalf("future item must be clamped, not dropped; count=%d", res.ItemCount)
	}
	// Elapsed clamps to 0: full decay weight of 1.0 in the 15-min bucket.
	wantWeight := 1.0 * 0.4
	if math.Abs(res.TotalWeight-wantWeight) > 1e-12 {
		t.Errorf("weight = %f, expected clamped %f", res.TotalWeight, wantWeight)
	}
}

func TestEvaluate_BelowThresholdDiscarded(t *testing.T) {
	eng := NewEngine(testClock())
	profile := DefaultProfile()
	profile.MinImpactThreshold = 0.5
	at := afterHoursInstant()

	// Six hours old in the rest-of-day bucket: weight well below 0.5.
	stale := types.NewsItem{
		Instruments: []string{"TCS"},
		PublishedAt: at.Add(-6 * time.Hour).Unix(),
		Sentiment:   0.9,
		Impact:      types.ImpactMedium,
	}
	res := eng.Evaluate(context.Background(), profile, "TCS", at, []types.NewsItem{stale})

	if res.ItemCount != 0 || res.Score != 0 || res.Confidence != 0 {
		t.Errorf("discarded item must leave a neutral result, got %+v", res)
	}
}

func TestEvaluate_Momentum(t *testing.T) {
	eng := NewEngine(testClock())
	profile := DefaultProfile()
	at := afterHoursInstant()

	items := []types.NewsItem{
		{Instruments: []string{"TCS"}, PublishedAt: at.Add(-30 * time.Minute).Unix(), Sentiment: 0.8, Impact: types.ImpactMedium},
		{Instruments: []string{"TCS"}, PublishedAt: at.Add(-90 * time.Minute).Unix(), Sentiment: 0.6, Impact: types.ImpactMedium},
		{Instruments: []string{"TCS"}, PublishedAt: at.Add(-5 * time.Hour).Unix(), Sentiment: -0.4, Impact: types.ImpactMedium},
	}
	res := eng.Evaluate(context.Background(), profile, "TCS", at, items)

	// recent mean (0.7) minus older mean (-0.4)
	if math.Abs(res.Momentum-1.1) > 1e-9 {
		t.Errorf("momentum = %f, expected 1.1", res.Momentum)
	}
	if res.RecentCount != 2 {
		t.Errorf("recent count = %d, expected 2", res.RecentCount)
	}
}

func TestEvaluate_MomentumZeroWhenOneSideEmpty(t *testing.T) {
	eng := NewEngine(testClock())
	at := afterHoursInstant()

	onlyRecent := []types.NewsItem{
		{Instruments: []string{"TCS"}, PublishedAt: at.Add(-10 * time.Minute).Unix(), Sentiment: 0.9, Impact: types.ImpactMedium},
	}
	res := eng.Evaluate(context.Background(), DefaultProfile(), "TCS", at, onlyRecent)
	if res.Momentum != 0 {
		t.Errorf("momentum must be 0 with no older items, got %f", res.Momentum)
	}
}

func TestEvaluate_MarketHoursMultiplier(t *testing.T) {
	eng := NewEngine(testClock())
	profile := DefaultProfile()
	ist := time.FixedZone("IST", 19800)
	at := time.Date(2026, 8, 28, 11, 0, 0, 0, ist)

	item := types.NewsItem{
		Instruments: []string{"TCS"},
		PublishedAt: at.Add(-10 * time.Minute).Unix(), // 10:50 IST, market hours
		Sentiment:   0.5,
		Impact:      types.ImpactMedium,
	}
	res := eng.Evaluate(context.Background(), profile, "TCS", at, []types.NewsItem{item})

	wantWeight := math.Exp(-math.Ln2/120*10) * 0.4 * profile.MarketHoursBoost
	if math.Abs(res.TotalWeight-wantWeight) > 1e-12 {
		t.Errorf("weight = %f, expected market-hours boosted %f", res.TotalWeight, wantWeight)
	}
}

func TestEvaluate_IgnoresOtherInstruments(t *testing.T) {
	eng := NewEngine(testClock())
	at := afterHoursInstant()

	items := []types.NewsItem{
		{Instruments: []string{"INFY"}, PublishedAt: at.Add(-5 * time.Minute).Unix(), Sentiment: 0.9, Impact: types.ImpactHigh, ImpactScore: 0.9},
	}
	res := eng.Evaluate(context.Background(), DefaultProfile(), "TCS", at, items)
	if res.ItemCount != 0 {
		t.Errorf("items for other instruments must not count, got %d", res.ItemCount)
	}
}

func TestCache(t *testing.T) {
	cache := NewCache(50 * time.Millisecond)

	res := types.SentimentResult{Instrument: "RELIANCE", Score: 0.4, Confidence: 0.7}
	cache.Set("RELIANCE", res)

	got, ok := cache.Get("RELIANCE")
	if !ok {
		t.Fatal("expected cached result")
	}
	if got.Score != 0.4 {
		t.Errorf("cached score = %f, expected 0.4", got.Score)
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok := cache.Get("RELIANCE"); ok {
		t.Error("expected cache entry to expire")
	}

	cache.Set("TCS", res)
	cache.Clear()
	if _, ok := cache.Get("TCS"); ok {
		t.Error("expected cache to be empty after Clear")
	}
}
