package outcome

import (
	"gonum.org/v1/gonum/stat"

	"signal-advisor/internal/types"
)

// Analyzer aggregates closed signals into derived performance metrics.
// Snapshots are recomputed on demand, never stored.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Snapshot computes win rate, ROI statistics, a Sharpe-like ratio, and max
// drawdown over a set of closed signals. Cancelled signals count toward the
// totals but contribute no ROI.
func (a *Analyzer) Snapshot(signals []types.TradingSignal) types.PerformanceSnapshot {
	snap := types.PerformanceSnapshot{}

	var rois []float64
	for i := range signals {
		sig := &signals[i]
		if !sig.Outcome.Terminal() {
			continue
		}
		snap.Total++
		switch sig.Outcome {
		case types.OutcomeProfitable:
			snap.Profitable++
		case types.OutcomeLoss:
			snap.Losses++
		case types.OutcomeBreakEven:
			snap.BreakEven++
		case types.OutcomeCancelled:
			snap.Cancelled++
			continue
		}
		rois = append(rois, sig.ROI())
	}

	if decided := snap.Profitable + snap.Losses; decided > 0 {
		snap.WinRate = float64(snap.Profitable) / float64(decided)
	}
	if len(rois) == 0 {
		return snap
	}

	snap.AvgROI = stat.Mean(rois, nil)
	for i, r := range rois {
		snap.TotalROI += r
		if i == 0 || r > snap.BestROI {
			snap.BestROI = r
		}
		if i == 0 || r < snap.WorstROI {
			snap.WorstROI = r
		}
	}

	if len(rois) >= 2 {
		if sd := stat.StdDev(rois, nil); sd > 0 {
			snap.Sharpe = snap.AvgROI / sd
		}
	}
	snap.MaxDrawdown = maxDrawdown(rois)
	return snap
}

// maxDrawdown is the largest peak-to-trough fall of the cumulative ROI
// curve.
func maxDrawdown(rois []float64) float64 {
	var cum, peak, maxDD float64
	for _, r := range rois {
		cum += r
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
