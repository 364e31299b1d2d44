package types

// Direction of a trading signal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// OutcomeState is the lifecycle state of a persisted signal.
// pending is the only non-terminal state.
type OutcomeState string

const (
	OutcomePending    OutcomeState = "pending"
	OutcomeProfitable OutcomeState = "profitable"
	OutcomeLoss       OutcomeState = "loss"
	OutcomeBreakEven  OutcomeState = "break_even"
	OutcomeCancelled  OutcomeState = "cancelled"
)

func (s OutcomeState) Terminal() bool { return s != OutcomePending && s != "" }

// Impact is the severity label attached to a news item by the ingestion side.
type Impact string

const (
	ImpactMinimal  Impact = "minimal"
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactVeryHigh Impact = "very_high"
)

// PriceBar is one OHLCV record. Read-only to this module; ordered by Ts
// within a session.
type PriceBar struct {
	Instrument                  string
	Session                     string // YYYY-MM-DD
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// NewsItem is a pre-scored news record supplied by the ingestion side.
type NewsItem struct {
	Instruments []string
	PublishedAt int64
	Sentiment   float64 // [-1,1]
	Impact      Impact
	ImpactScore float64 // [0,1]
}

// Mentions reports whether the item references the given instrument.
func (n NewsItem) Mentions(instrument string) bool {
	for _, in := range n.Instruments {
		if in == instrument {
			return true
		}
	}
	return false
}

type IndicatorKind string

const (
	KindRSI       IndicatorKind = "rsi"
	KindSMA       IndicatorKind = "sma"
	KindEMA       IndicatorKind = "ema"
	KindMACD      IndicatorKind = "macd"
	KindBollinger IndicatorKind = "bollinger"
)

// IndicatorSnapshot is the persisted per-session value of one indicator.
// One row per (kind, instrument, session), upserted as new bars arrive.
type IndicatorSnapshot struct {
	Instrument string
	Session    string
	Kind       IndicatorKind
	Value      float64 // primary value: RSI, SMA, EMA, MACD line, BB middle
	Upper      float64 // BB upper
	Lower      float64 // BB lower
	Signal     float64 // MACD signal line
	Hist       float64 // MACD histogram
}

// IndicatorSet carries the latest indicator values for one instrument.
// Have distinguishes "missing" (insufficient history) from a zero value.
type IndicatorSet struct {
	RSI  float64
	SMA  map[int]float64
	EMA  map[int]float64
	MACD struct{ Line, Signal, Hist float64 }
	BB   struct{ Middle, Upper, Lower float64 }
	Have map[IndicatorKind]bool
}

// SentimentResult is the time-weighted sentiment for one instrument at one
// evaluation instant.
type SentimentResult struct {
	Instrument  string
	Score       float64 // [-1,1], weighted average
	Confidence  float64 // [0,1], saturating weight normalization
	Momentum    float64 // recent mean minus older mean
	TotalWeight float64
	ItemCount   int // items above the minimum-impact threshold
	RecentCount int // items published within the last 2 hours
	EvaluatedAt int64
}

// TrendLabel summarizes the technical vote aggregation.
type TrendLabel string

const (
	TrendStrongBullish TrendLabel = "strong_bullish"
	TrendBullish       TrendLabel = "bullish"
	TrendNeutral       TrendLabel = "neutral"
	TrendBearish       TrendLabel = "bearish"
	TrendStrongBearish TrendLabel = "strong_bearish"
)

// TradingSignal is the persisted output of the composer. The composer writes
// it once at creation; the outcome tracker writes the three outcome fields
// exactly once when the signal leaves pending.
type TradingSignal struct {
	ID           int64
	Instrument   string
	Session      string
	Direction    Direction
	Confidence   float64 // [0,100]
	Entry        float64
	Target       float64
	Stop         float64
	CreatedAt    int64
	Outcome      OutcomeState
	OutcomePrice float64
	OutcomeAt    int64
}

// ROI returns the realized return percentage for a closed signal.
func (s *TradingSignal) ROI() float64 {
	if !s.Outcome.Terminal() || s.Outcome == OutcomeCancelled || s.Entry == 0 {
		return 0
	}
	if s.Direction == Sell {
		return (s.Entry - s.OutcomePrice) / s.Entry * 100.0
	}
	return (s.OutcomePrice - s.Entry) / s.Entry * 100.0
}

// Evaluation is the full composer result for one instrument at one instant.
// Returned for every invocation including HOLD; only buy/sell are persisted.
type Evaluation struct {
	Instrument    string           `json:"instrument"`
	Session       string           `json:"session"`
	Action        Direction        `json:"action"`
	Confidence    float64          `json:"confidence"`
	RawConfidence float64          `json:"raw_confidence"` // pre-filter value kept for diagnostics
	Trend         TrendLabel       `json:"trend"`
	Strength      float64          `json:"strength"` // [0,100] after time-of-day damping
	Reason        string           `json:"reason"`
	Entry         float64          `json:"entry,omitempty"`
	Target        float64          `json:"target,omitempty"`
	Stop          float64          `json:"stop,omitempty"`
	PositionPct   float64          `json:"position_pct,omitempty"`
	RiskReward    float64          `json:"risk_reward,omitempty"`
	Sentiment     *SentimentResult `json:"-"`
	SignalID      int64            `json:"signal_id,omitempty"`
	Time          int64            `json:"time"`
}

// PerformanceSnapshot is a derived aggregate over closed signals. Never
// stored; always recomputable.
type PerformanceSnapshot struct {
	Total       int
	Profitable  int
	Losses      int
	BreakEven   int
	Cancelled   int
	WinRate     float64 // profitable / (profitable + losses)
	AvgROI      float64
	TotalROI    float64
	BestROI     float64
	WorstROI    float64
	Sharpe      float64 // mean(ROI)/stddev(ROI), 0 below 2 samples
	MaxDrawdown float64 // peak-to-trough on the cumulative ROI curve
}
