package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/types"
)

func openStores(t *testing.T) map[string]interfaces.SignalStore {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "signals.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]interfaces.SignalStore{
		"sqlite": sq,
		"memory": NewMemoryStore(),
	}
}

func newSignal(instrument string, createdAt int64) *types.TradingSignal {
	return &types.TradingSignal{
		Instrument: instrument,
		Session:    "2026-08-28",
		Direction:  types.Buy,
		Confidence: 72.5,
		Entry:      100,
		Target:     101.5,
		Stop:       99,
		CreatedAt:  createdAt,
	}
}

func TestCreateAndListPending(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := s.CreateSignal(ctx, newSignal("RELIANCE", 1000))
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if id == 0 {
				t.Fatal("expected non-zero id")
			}

			pending, err := s.ListPending(ctx)
			if err != nil {
				t.Fatalf("list pending: %v", err)
			}
			if len(pending) != 1 {
				t.Fatalf("expected 1 pending signal, got %d", len(pending))
			}
			sig := pending[0]
			if sig.Outcome != types.OutcomePending {
				t.Errorf("new signal outcome = %s, expected pending", sig.Outcome)
			}
			if sig.Direction != types.Buy || sig.Entry != 100 {
				t.Errorf("signal fields not round-tripped: %+v", sig)
			}
		})
	}
}

func TestUpdateOutcome_ExactlyOnce(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.CreateSignal(ctx, newSignal("TCS", 1000))
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			at := time.Unix(2000, 0)
			if err := s.UpdateOutcome(ctx, id, types.OutcomeProfitable, 101.5, at); err != nil {
				t.Fatalf("first update: %v", err)
			}

			// Second writer must be a no-op, not an overwrite.
			err = s.UpdateOutcome(ctx, id, types.OutcomeLoss, 99, at.Add(time.Minute))
			if !errors.Is(err, ErrTerminalSignal) {
				t.Fatalf("second update: expected ErrTerminalSignal, got %v", err)
			}

			closed, err := s.ListClosed(ctx, time.Unix(0, 0), time.Unix(5000, 0))
			if err != nil {
				t.Fatalf("list closed: %v", err)
			}
			if len(closed) != 1 {
				t.Fatalf("expected 1 closed signal, got %d", len(closed))
			}
			if closed[0].Outcome != types.OutcomeProfitable || closed[0].OutcomePrice != 101.5 {
				t.Errorf("terminal state was overwritten: %+v", closed[0])
			}
		})
	}
}

func TestUpdateOutcome_UnknownSignal(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.UpdateOutcome(context.Background(), 9999, types.OutcomeLoss, 1, time.Now())
			if err == nil || errors.Is(err, ErrTerminalSignal) {
				t.Errorf("expected not-found error, got %v", err)
			}
		})
	}
}

func TestListClosed_WindowAndOrder(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ids := make([]int64, 0, 3)
			for i, created := range []int64{3000, 1000, 2000} {
				sig := newSignal("INFY", created)
				if i == 1 {
					sig.Direction = types.Sell
				}
				id, err := s.CreateSignal(ctx, sig)
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				ids = append(ids, id)
			}
			for _, id := range ids {
				if err := s.UpdateOutcome(ctx, id, types.OutcomeProfitable, 101.5, time.Unix(4000, 0)); err != nil {
					t.Fatalf("update: %v", err)
				}
			}

			closed, err := s.ListClosed(ctx, time.Unix(1000, 0), time.Unix(2500, 0))
			if err != nil {
				t.Fatalf("list closed: %v", err)
			}
			if len(closed) != 2 {
				t.Fatalf("expected 2 closed signals in window, got %d", len(closed))
			}
			if closed[0].CreatedAt > closed[1].CreatedAt {
				t.Error("closed signals must be in creation order")
			}
		})
	}
}

func TestUpsertIndicators(t *testing.T) {
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "signals.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sq.Close()
	ctx := context.Background()

	snap := types.IndicatorSnapshot{
		Instrument: "RELIANCE", Session: "2026-08-28", Kind: types.KindRSI, Value: 34.5,
	}
	if err := sq.UpsertIndicators(ctx, []types.IndicatorSnapshot{snap}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Recomputation supersedes the row, never duplicates it.
	snap.Value = 36.1
	if err := sq.UpsertIndicators(ctx, []types.IndicatorSnapshot{snap}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
}
