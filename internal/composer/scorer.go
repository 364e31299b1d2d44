package composer

import (
	"context"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/types"
)

// RSI vote thresholds. The outer pair casts strong votes.
const (
	rsiStrongBuy  = 25.0
	rsiBuy        = 35.0
	rsiSell       = 65.0
	rsiStrongSell = 75.0
)

// macdStrongHistFrac marks a MACD histogram as strong when its magnitude
// exceeds this fraction of the price.
const macdStrongHistFrac = 0.001

// TechnicalScorer maps an indicator set to directional votes. It is the
// built-in Scorer; additional scorers (e.g. a model predictor) plug into the
// composer beside it.
type TechnicalScorer struct{}

var _ interfaces.Scorer = (*TechnicalScorer)(nil)

func (TechnicalScorer) Score(_ context.Context, _ string, latest types.PriceBar, inds types.IndicatorSet) ([]interfaces.Vote, error) {
	var votes []interfaces.Vote
	price := latest.Close

	if inds.Have[types.KindRSI] {
		switch {
		case inds.RSI <= rsiStrongBuy:
			votes = append(votes, interfaces.Vote{Direction: types.Buy, Strong: true, Source: "rsi"})
		case inds.RSI <= rsiBuy:
			votes = append(votes, interfaces.Vote{Direction: types.Buy, Source: "rsi"})
		case inds.RSI >= rsiStrongSell:
			votes = append(votes, interfaces.Vote{Direction: types.Sell, Strong: true, Source: "rsi"})
		case inds.RSI >= rsiSell:
			votes = append(votes, interfaces.Vote{Direction: types.Sell, Source: "rsi"})
		}
	}

	if inds.Have[types.KindMACD] {
		strong := abs(inds.MACD.Hist) > price*macdStrongHistFrac
		if inds.MACD.Hist > 0 {
			votes = append(votes, interfaces.Vote{Direction: types.Buy, Strong: strong, Source: "macd"})
		} else if inds.MACD.Hist < 0 {
			votes = append(votes, interfaces.Vote{Direction: types.Sell, Strong: strong, Source: "macd"})
		}
	}

	if inds.Have[types.KindBollinger] {
		// Mean reversion at the bands: a close outside the band is a strong
		// counter-vote.
		if price <= inds.BB.Lower {
			votes = append(votes, interfaces.Vote{Direction: types.Buy, Strong: true, Source: "bollinger"})
		} else if price >= inds.BB.Upper {
			votes = append(votes, interfaces.Vote{Direction: types.Sell, Strong: true, Source: "bollinger"})
		}
	}

	if inds.Have[types.KindSMA] {
		short, long := smaPair(inds.SMA)
		if short > 0 {
			if price > inds.SMA[short] {
				votes = append(votes, interfaces.Vote{Direction: types.Buy, Source: "sma"})
			} else if price < inds.SMA[short] {
				votes = append(votes, interfaces.Vote{Direction: types.Sell, Source: "sma"})
			}
		}
		if short > 0 && long > 0 {
			if inds.SMA[short] > inds.SMA[long] {
				votes = append(votes, interfaces.Vote{Direction: types.Buy, Source: "sma_cross"})
			} else if inds.SMA[short] < inds.SMA[long] {
				votes = append(votes, interfaces.Vote{Direction: types.Sell, Source: "sma_cross"})
			}
		}
	}

	if inds.Have[types.KindEMA] {
		short, _ := smaPair(inds.EMA)
		if short > 0 {
			if price > inds.EMA[short] {
				votes = append(votes, interfaces.Vote{Direction: types.Buy, Source: "ema"})
			} else if price < inds.EMA[short] {
				votes = append(votes, interfaces.Vote{Direction: types.Sell, Source: "ema"})
			}
		}
	}

	return votes, nil
}

// smaPair picks the shortest and longest windows present.
func smaPair(m map[int]float64) (short, long int) {
	for w := range m {
		if short == 0 || w < short {
			short = w
		}
		if w > long {
			long = w
		}
	}
	if short == long {
		long = 0
	}
	return short, long
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// tallyVotes aggregates votes into bullish and bearish totals (strong votes
// count double), a trend label, and a strength percentage.
func tallyVotes(votes []interfaces.Vote) (trend types.TrendLabel, strength float64) {
	var bull, bear float64
	for _, v := range votes {
		weight := 1.0
		if v.Strong {
			weight = 2.0
		}
		switch v.Direction {
		case types.Buy:
			bull += weight
		case types.Sell:
			bear += weight
		}
	}

	total := bull + bear
	if total == 0 {
		return types.TrendNeutral, 0
	}

	dominant := bull
	if bear > bull {
		dominant = bear
	}
	strength = dominant / total * 100.0

	switch {
	case bull > bear && strength >= 75:
		trend = types.TrendStrongBullish
	case bull > bear && strength >= 60:
		trend = types.TrendBullish
	case bear > bull && strength >= 75:
		trend = types.TrendStrongBearish
	case bear > bull && strength >= 60:
		trend = types.TrendBearish
	default:
		trend = types.TrendNeutral
	}
	return trend, strength
}
