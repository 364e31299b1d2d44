// Package scheduler drives the batch cadence: signal generation and outcome
// evaluation run on cron schedules during trading hours, fanned out over a
// bounded worker pool. Per-instrument work is independent; a batch-level
// cancellation aborts remaining instruments without touching committed
// signals.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/logger"
	"signal-advisor/internal/outcome"
	"signal-advisor/internal/store"
	"signal-advisor/internal/trace"
	"signal-advisor/internal/types"
)

// batchTimeout bounds one cron-triggered batch.
const batchTimeout = 4 * time.Minute

// Scheduler owns the cron entries and exposes the three externally
// invocable operations: generate signals, evaluate outcomes, run backtest.
type Scheduler struct {
	cron       *cron.Cron
	cfg        *store.Config
	composer   interfaces.Composer
	tracker    *outcome.Tracker
	backtester *outcome.Backtester

	// evalMu makes outcome evaluation single-flight so two cron ticks never
	// process the same pending signal concurrently.
	evalMu sync.Mutex
}

func New(cfg *store.Config, composer interfaces.Composer, tracker *outcome.Tracker, backtester *outcome.Backtester) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		cfg:        cfg,
		composer:   composer,
		tracker:    tracker,
		backtester: backtester,
	}
}

// RegisterAll wires the generate and evaluate tasks to their cron
// expressions.
func (s *Scheduler) RegisterAll(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule.GenerateCron, func() {
		bctx, cancel := context.WithTimeout(ctx, batchTimeout)
		defer cancel()
		s.GenerateSignals(bctx, s.cfg.Universe, time.Now())
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule.EvaluateCron, func() {
		bctx, cancel := context.WithTimeout(ctx, batchTimeout)
		defer cancel()
		s.EvaluateOutcomes(bctx, time.Now())
	}); err != nil {
		return err
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(context.Background(), "Scheduler started",
		"generate_cron", s.cfg.Schedule.GenerateCron,
		"evaluate_cron", s.cfg.Schedule.EvaluateCron,
		"workers", s.cfg.Schedule.Workers,
	)
}

// Stop stops the cron scheduler; running jobs finish their batch.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	logger.Info(context.Background(), "Scheduler stopped")
}

// GenerateSignals evaluates every instrument at the given instant over a
// bounded worker pool. One instrument's failure never aborts the batch.
func (s *Scheduler) GenerateSignals(ctx context.Context, instruments []string, at time.Time) []*types.Evaluation {
	batchID := uuid.NewString()
	ctx, span := trace.StartSpan(ctx, "scheduler.GenerateSignals")
	span.SetAttributes(
		attribute.String("batch_id", batchID),
		attribute.Int("instruments", len(instruments)),
	)
	defer span.End()

	logger.Info(ctx, "Signal generation batch started", "batch_id", batchID, "instruments", len(instruments))

	jobs := make(chan string)
	results := make(chan *types.Evaluation, len(instruments))

	workers := s.cfg.Schedule.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instrument := range jobs {
				ev, err := s.composer.Evaluate(ctx, instrument, at)
				if err != nil {
					logger.ErrorWithErr(ctx, "Instrument evaluation failed", err,
						"batch_id", batchID, "instrument", instrument)
					continue
				}
				results <- ev
			}
		}()
	}

dispatch:
	for _, instrument := range instruments {
		select {
		case <-ctx.Done():
			logger.Warn(ctx, "Batch cancelled, skipping remaining instruments",
				"batch_id", batchID, "error", ctx.Err())
			break dispatch
		case jobs <- instrument:
		}
	}

	close(jobs)
	wg.Wait()
	close(results)

	var evals []*types.Evaluation
	actionable := 0
	for ev := range results {
		evals = append(evals, ev)
		if ev.Action != types.Hold {
			actionable++
		}
	}

	logger.Info(ctx, "Signal generation batch completed",
		"batch_id", batchID,
		"evaluated", len(evals),
		"actionable", actionable,
	)
	return evals
}

// EvaluateOutcomes resolves pending signals. Single-flight: an overlapping
// tick is skipped rather than queued.
func (s *Scheduler) EvaluateOutcomes(ctx context.Context, now time.Time) {
	if !s.evalMu.TryLock() {
		logger.Warn(ctx, "Outcome evaluation already running, skipping tick")
		return
	}
	defer s.evalMu.Unlock()

	if _, err := s.tracker.EvaluatePending(ctx, now); err != nil {
		logger.ErrorWithErr(ctx, "Outcome evaluation batch failed", err)
	}
}

// RunBacktest replays closed signals for the instrument set over a date
// range.
func (s *Scheduler) RunBacktest(ctx context.Context, start, end time.Time, instruments []string, startingCapital float64) (*outcome.BacktestResult, error) {
	return s.backtester.Run(ctx, start, end, instruments, startingCapital)
}
