package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"signal-advisor/internal/types"
)

// MemoryStore is an in-memory SignalStore used by tests and backtests that
// never touch disk. Same exactly-once outcome semantics as SQLiteStore.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	signals    map[int64]*types.TradingSignal
	indicators map[string]types.IndicatorSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		signals:    map[int64]*types.TradingSignal{},
		indicators: map[string]types.IndicatorSnapshot{},
	}
}

func (m *MemoryStore) CreateSignal(_ context.Context, sig *types.TradingSignal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *sig
	cp.ID = m.nextID
	cp.Outcome = types.OutcomePending
	m.signals[cp.ID] = &cp
	m.nextID++

	sig.ID = cp.ID
	sig.Outcome = cp.Outcome
	return cp.ID, nil
}

func (m *MemoryStore) UpdateOutcome(_ context.Context, id int64, state types.OutcomeState, price float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sig, ok := m.signals[id]
	if !ok {
		return fmt.Errorf("signal %d not found", id)
	}
	if sig.Outcome.Terminal() {
		return ErrTerminalSignal
	}
	sig.Outcome = state
	sig.OutcomePrice = price
	sig.OutcomeAt = at.Unix()
	return nil
}

func (m *MemoryStore) ListPending(_ context.Context) ([]types.TradingSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.TradingSignal
	for _, sig := range m.signals {
		if !sig.Outcome.Terminal() {
			out = append(out, *sig)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (m *MemoryStore) ListClosed(_ context.Context, from, to time.Time) ([]types.TradingSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.TradingSignal
	for _, sig := range m.signals {
		if sig.Outcome.Terminal() && sig.CreatedAt >= from.Unix() && sig.CreatedAt <= to.Unix() {
			out = append(out, *sig)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (m *MemoryStore) UpsertIndicators(_ context.Context, snaps []types.IndicatorSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snap := range snaps {
		key := snap.Instrument + "|" + snap.Session + "|" + string(snap.Kind)
		m.indicators[key] = snap
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func sortByCreation(sigs []types.TradingSignal) {
	sort.Slice(sigs, func(i, j int) bool {
		if sigs[i].CreatedAt == sigs[j].CreatedAt {
			return sigs[i].ID < sigs[j].ID
		}
		return sigs[i].CreatedAt < sigs[j].CreatedAt
	})
}
