package interfaces

import (
	"context"
	"time"

	"signal-advisor/internal/types"
)

// SignalStore persists trading signals. CreateSignal is called once per
// emitted buy/sell; UpdateOutcome must succeed at most once per signal id
// (updating an already-terminal signal is a no-op reported via
// ErrTerminalSignal by implementations).
type SignalStore interface {
	CreateSignal(ctx context.Context, s *types.TradingSignal) (int64, error)
	UpdateOutcome(ctx context.Context, id int64, state types.OutcomeState, price float64, at time.Time) error
	ListPending(ctx context.Context) ([]types.TradingSignal, error)
	ListClosed(ctx context.Context, from, to time.Time) ([]types.TradingSignal, error)
	Close() error
}
