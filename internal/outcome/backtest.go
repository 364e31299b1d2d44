package outcome

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/logger"
	"signal-advisor/internal/store"
	"signal-advisor/internal/trace"
	"signal-advisor/internal/types"
)

// BacktestTrade is one replayed fill in a backtest ledger.
type BacktestTrade struct {
	SignalID   int64
	Instrument string
	Direction  types.Direction
	Stake      decimal.Decimal
	PnL        decimal.Decimal
	ROI        float64
}

// BacktestResult summarizes a chronological replay of closed signals.
type BacktestResult struct {
	StartingCapital decimal.Decimal
	FinalCapital    decimal.Decimal
	ReturnPct       float64
	Trades          int
	Wins            int
	WinRate         float64
	Ledger          []BacktestTrade
}

// Backtester replays closed signals against a starting capital. Capital
// arithmetic uses decimals so long replays do not accumulate float error.
type Backtester struct {
	cfg     *store.Config
	signals interfaces.SignalStore
}

func NewBacktester(cfg *store.Config, signals interfaces.SignalStore) *Backtester {
	return &Backtester{cfg: cfg, signals: signals}
}

// Run replays closed signals created in [start, end] chronologically. Each
// trade stakes a capped fraction of current capital scaled by the signal's
// confidence. Zero signals is a valid result, not an error.
func (b *Backtester) Run(ctx context.Context, start, end time.Time, instruments []string, startingCapital float64) (*BacktestResult, error) {
	ctx, span := trace.StartSpan(ctx, "outcome.Backtest")
	defer span.End()

	closed, err := b.signals.ListClosed(ctx, start, end)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, in := range instruments {
		wanted[in] = true
	}

	capital := decimal.NewFromFloat(startingCapital)
	result := &BacktestResult{
		StartingCapital: capital,
		FinalCapital:    capital,
	}

	maxFraction := decimal.NewFromFloat(b.cfg.Composer.MaxPositionPct / 100.0)
	hundred := decimal.NewFromInt(100)

	for i := range closed {
		sig := &closed[i]
		if len(wanted) > 0 && !wanted[sig.Instrument] {
			continue
		}
		if sig.Outcome == types.OutcomeCancelled {
			continue
		}

		fraction := maxFraction.Mul(decimal.NewFromFloat(sig.Confidence)).Div(hundred)
		stake := capital.Mul(fraction)
		roi := sig.ROI()
		pnl := stake.Mul(decimal.NewFromFloat(roi)).Div(hundred)
		capital = capital.Add(pnl)

		result.Trades++
		if roi > 0 {
			result.Wins++
		}
		result.Ledger = append(result.Ledger, BacktestTrade{
			SignalID:   sig.ID,
			Instrument: sig.Instrument,
			Direction:  sig.Direction,
			Stake:      stake,
			PnL:        pnl,
			ROI:        roi,
		})
	}

	result.FinalCapital = capital
	if result.Trades > 0 {
		result.WinRate = float64(result.Wins) / float64(result.Trades)
	}
	if startingCapital != 0 {
		ret, _ := capital.Sub(result.StartingCapital).
			Div(result.StartingCapital).Mul(hundred).Float64()
		result.ReturnPct = ret
	}

	logger.Info(ctx, "Backtest completed",
		"trades", result.Trades,
		"wins", result.Wins,
		"final_capital", result.FinalCapital.StringFixed(2),
	)
	return result, nil
}
