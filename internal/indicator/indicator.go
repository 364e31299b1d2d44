// Package indicator turns ordered OHLCV bar series into technical indicator
// series. All arithmetic is 64-bit floating point; rounding happens only at
// the storage boundary. Every function returns ErrInsufficientData instead
// of padding when the series is shorter than the minimum lookback, so
// callers can treat "missing" distinctly from "zero".
//
// All returned series are aligned to the end of the input: the last element
// of an output series corresponds to the last input bar.
package indicator

import (
	"errors"
	"math"

	"signal-advisor/internal/types"
)

var ErrInsufficientData = errors.New("insufficient data for indicator")

// Params is the full indicator parameter set used for one evaluation.
type Params struct {
	RSIPeriod  int
	SMAWindows []int
	EMAWindows []int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	BBWindow   int
	BBStdDev   float64
}

// DefaultParams returns the conventional intraday parameter set.
func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		SMAWindows: []int{20, 50},
		EMAWindows: []int{9, 21},
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BBWindow:   20,
		BBStdDev:   2.0,
	}
}

// SMASeries returns the simple moving average. Output length is
// len(vals)-n+1.
func SMASeries(vals []float64, n int) ([]float64, error) {
	if n <= 0 || len(vals) < n {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(vals)-n+1)
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= n {
			sum -= vals[i-n]
		}
		if i >= n-1 {
			out = append(out, sum/float64(n))
		}
	}
	return out, nil
}

// EMASeries returns the exponentially weighted mean, seeded with the SMA of
// the first n values and smoothed with 2/(n+1). Output length is
// len(vals)-n+1.
func EMASeries(vals []float64, n int) ([]float64, error) {
	return EMASeriesAlpha(vals, n, 2.0/float64(n+1))
}

// EMASeriesAlpha is EMASeries with an explicit smoothing factor.
func EMASeriesAlpha(vals []float64, n int, alpha float64) ([]float64, error) {
	if n <= 0 || len(vals) < n {
		return nil, ErrInsufficientData
	}
	seed := 0.0
	for i := 0; i < n; i++ {
		seed += vals[i]
	}
	seed /= float64(n)

	out := make([]float64, 0, len(vals)-n+1)
	out = append(out, seed)
	ema := seed
	for i := n; i < len(vals); i++ {
		ema = alpha*vals[i] + (1-alpha)*ema
		out = append(out, ema)
	}
	return out, nil
}

// RSISeries returns the Wilder-smoothed relative strength index. The first
// value uses a simple mean over the first period deltas; subsequent values
// use avg = (avg_prev*(period-1) + current)/period. A zero average loss is
// defined as RSI 100. Output length is len(closes)-period.
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return nil, ErrInsufficientData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACDSeries returns the MACD line, signal line, and histogram, each aligned
// to the end of the input. Requires len(closes) >= slow+signal.
func MACDSeries(closes []float64, fast, slow, signal int) (line, sig, hist []float64, err error) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal {
		return nil, nil, nil, ErrInsufficientData
	}

	fastEMA, err := EMASeries(closes, fast)
	if err != nil {
		return nil, nil, nil, err
	}
	slowEMA, err := EMASeries(closes, slow)
	if err != nil {
		return nil, nil, nil, err
	}

	// Both EMAs are end-aligned; trim the fast one to the slow one's length.
	fastEMA = fastEMA[len(fastEMA)-len(slowEMA):]
	line = make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig, err = EMASeries(line, signal)
	if err != nil {
		return nil, nil, nil, err
	}

	trimmed := line[len(line)-len(sig):]
	hist = make([]float64, len(sig))
	for i := range sig {
		hist[i] = trimmed[i] - sig[i]
	}
	return line, sig, hist, nil
}

// BollingerSeries returns middle, upper, and lower bands with the given
// window and stddev multiplier. Output length is len(closes)-n+1.
func BollingerSeries(closes []float64, n int, k float64) (mid, up, low []float64, err error) {
	mid, err = SMASeries(closes, n)
	if err != nil {
		return nil, nil, nil, err
	}
	up = make([]float64, len(mid))
	low = make([]float64, len(mid))
	for i := range mid {
		sd := stdDev(closes[i:i+n], mid[i])
		up[i] = mid[i] + k*sd
		low[i] = mid[i] - k*sd
	}
	return mid, up, low, nil
}

// stdDev is the population standard deviation of a window around a known
// mean.
func stdDev(window []float64, m float64) float64 {
	s := 0.0
	for _, v := range window {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(window)))
}

// Compute builds the latest indicator set from a bar series. Indicators
// short on history are simply absent from the Have map; no error is
// returned.
func Compute(bars []types.PriceBar, p Params) types.IndicatorSet {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	set := types.IndicatorSet{
		SMA:  map[int]float64{},
		EMA:  map[int]float64{},
		Have: map[types.IndicatorKind]bool{},
	}

	if rsi, err := RSISeries(closes, p.RSIPeriod); err == nil {
		set.RSI = rsi[len(rsi)-1]
		set.Have[types.KindRSI] = true
	}
	for _, w := range p.SMAWindows {
		if sma, err := SMASeries(closes, w); err == nil {
			set.SMA[w] = sma[len(sma)-1]
			set.Have[types.KindSMA] = true
		}
	}
	for _, w := range p.EMAWindows {
		if ema, err := EMASeries(closes, w); err == nil {
			set.EMA[w] = ema[len(ema)-1]
			set.Have[types.KindEMA] = true
		}
	}
	if line, sig, hist, err := MACDSeries(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); err == nil {
		set.MACD.Line = line[len(line)-1]
		set.MACD.Signal = sig[len(sig)-1]
		set.MACD.Hist = hist[len(hist)-1]
		set.Have[types.KindMACD] = true
	}
	if mid, up, low, err := BollingerSeries(closes, p.BBWindow, p.BBStdDev); err == nil {
		set.BB.Middle = mid[len(mid)-1]
		set.BB.Upper = up[len(up)-1]
		set.BB.Lower = low[len(low)-1]
		set.Have[types.KindBollinger] = true
	}
	return set
}

// Snapshots builds the persistable per-session snapshot rows from a bar
// series. Indicators with insufficient history yield no snapshot, not a
// zero-filled one.
func Snapshots(instrument, session string, bars []types.PriceBar, p Params) []types.IndicatorSnapshot {
	set := Compute(bars, p)

	var out []types.IndicatorSnapshot
	if set.Have[types.KindRSI] {
		out = append(out, types.IndicatorSnapshot{
			Instrument: instrument, Session: session, Kind: types.KindRSI, Value: set.RSI,
		})
	}
	if set.Have[types.KindSMA] {
		if v, ok := set.SMA[p.SMAWindows[0]]; ok {
			out = append(out, types.IndicatorSnapshot{
				Instrument: instrument, Session: session, Kind: types.KindSMA, Value: v,
			})
		}
	}
	if set.Have[types.KindEMA] {
		if v, ok := set.EMA[p.EMAWindows[0]]; ok {
			out = append(out, types.IndicatorSnapshot{
				Instrument: instrument, Session: session, Kind: types.KindEMA, Value: v,
			})
		}
	}
	if set.Have[types.KindMACD] {
		out = append(out, types.IndicatorSnapshot{
			Instrument: instrument, Session: session, Kind: types.KindMACD,
			Value: set.MACD.Line, Signal: set.MACD.Signal, Hist: set.MACD.Hist,
		})
	}
	if set.Have[types.KindBollinger] {
		out = append(out, types.IndicatorSnapshot{
			Instrument: instrument, Session: session, Kind: types.KindBollinger,
			Value: set.BB.Middle, Upper: set.BB.Upper, Lower: set.BB.Lower,
		})
	}
	return out
}

// Round truncates a value to the given decimal precision. Applied only at
// the storage boundary to avoid compounding rounding error.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
