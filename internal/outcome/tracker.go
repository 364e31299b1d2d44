// Package outcome advances persisted signals through their lifecycle and
// aggregates realized performance. The lifecycle is pending → {profitable,
// loss, break_even, cancelled}; terminal states never transition again.
package outcome

import (
	"context"
	"errors"
	"time"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/logger"
	"signal-advisor/internal/store"
	"signal-advisor/internal/trace"
	"signal-advisor/internal/types"
)

// Tracker resolves pending signals against later bars.
type Tracker struct {
	cfg     *store.Config
	bars    interfaces.BarFeed
	signals interfaces.SignalStore
}

func NewTracker(cfg *store.Config, bars interfaces.BarFeed, signals interfaces.SignalStore) *Tracker {
	return &Tracker{cfg: cfg, bars: bars, signals: signals}
}

// EvaluatePending resolves every pending signal that can be resolved at the
// given instant. Per-signal failures are logged and left for the next
// cycle; they never abort the batch.
func (t *Tracker) EvaluatePending(ctx context.Context, now time.Time) (resolved int, err error) {
	ctx, span := trace.StartSpan(ctx, "outcome.EvaluatePending")
	defer span.End()

	pending, err := t.signals.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	for i := range pending {
		select {
		case <-ctx.Done():
			return resolved, ctx.Err()
		default:
		}
		if t.resolve(ctx, &pending[i], now) {
			resolved++
		}
	}

	logger.Info(ctx, "Outcome evaluation completed", "pending", len(pending), "resolved", resolved)
	return resolved, nil
}

// resolve applies the first-touch rule to one signal, falling back to the
// closing price once the forward window has elapsed. Returns true when a
// terminal state was committed.
func (t *Tracker) resolve(ctx context.Context, sig *types.TradingSignal, now time.Time) bool {
	created := time.Unix(sig.CreatedAt, 0)
	bars, err := t.bars.BarsBetween(ctx, sig.Instrument, created, now)
	if err != nil {
		logger.ErrorWithErr(ctx, "Bar fetch failed, signal stays pending", err,
			"instrument", sig.Instrument, "signal_id", sig.ID)
		return false
	}

	// Only bars after signal creation count.
	later := bars[:0:0]
	for _, b := range bars {
		if b.Ts > sig.CreatedAt {
			later = append(later, b)
		}
	}

	if state, price, barTs, ok := firstTouch(sig, later); ok {
		return t.commit(ctx, sig, state, price, time.Unix(barTs, 0))
	}

	if !now.After(t.windowEnd(sig)) {
		return false
	}

	// Window closed with neither threshold touched: resolve on the close.
	if len(later) == 0 {
		return t.commit(ctx, sig, types.OutcomeCancelled, sig.Entry, now)
	}
	last := later[len(later)-1]
	state := closeState(sig, last.Close)
	return t.commit(ctx, sig, state, last.Close, time.Unix(last.Ts, 0))
}

func (t *Tracker) commit(ctx context.Context, sig *types.TradingSignal, state types.OutcomeState, price float64, at time.Time) bool {
	err := t.signals.UpdateOutcome(ctx, sig.ID, state, price, at)
	if errors.Is(err, store.ErrTerminalSignal) {
		// Another writer got here first; the terminal state stands.
		logger.Debug(ctx, "Signal already terminal, skipping", "signal_id", sig.ID)
		return false
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Outcome update failed", err, "signal_id", sig.ID)
		return false
	}

	sig.Outcome = state
	sig.OutcomePrice = price
	sig.OutcomeAt = at.Unix()
	logger.Outcome(ctx, sig.Instrument, sig.ID, string(state), price, sig.ROI())
	return true
}

// firstTouch scans bars chronologically for a target or stop hit. When both
// thresholds fall inside the same bar, the target takes priority; intrabar
// ordering is unknowable from OHLC alone.
func firstTouch(sig *types.TradingSignal, bars []types.PriceBar) (state types.OutcomeState, price float64, barTs int64, ok bool) {
	for _, b := range bars {
		if sig.Direction == types.Buy {
			if b.High >= sig.Target {
				return types.OutcomeProfitable, sig.Target, b.Ts, true
			}
			if b.Low <= sig.Stop {
				return types.OutcomeLoss, sig.Stop, b.Ts, true
			}
		} else {
			if b.Low <= sig.Target {
				return types.OutcomeProfitable, sig.Target, b.Ts, true
			}
			if b.High >= sig.Stop {
				return types.OutcomeLoss, sig.Stop, b.Ts, true
			}
		}
	}
	return "", 0, 0, false
}

// closeState resolves a signal on the closing price.
func closeState(sig *types.TradingSignal, close float64) types.OutcomeState {
	if close == sig.Entry {
		return types.OutcomeBreakEven
	}
	favorable := close > sig.Entry
	if sig.Direction == types.Sell {
		favorable = close < sig.Entry
	}
	if favorable {
		return types.OutcomeProfitable
	}
	return types.OutcomeLoss
}

// windowEnd is the session close on the signal's session date plus the
// configured forward window.
func (t *Tracker) windowEnd(sig *types.TradingSignal) time.Time {
	loc := t.cfg.Location()
	day, err := time.ParseInLocation("2006-01-02", sig.Session, loc)
	if err != nil {
		day = time.Unix(sig.CreatedAt, 0).In(loc)
	}
	closeMin, _ := store.ParseClock(t.cfg.Session.Close)
	end := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).
		Add(time.Duration(closeMin) * time.Minute)
	return end.AddDate(0, 0, t.cfg.Outcome.ForwardWindowDays)
}
