package composerobs

import (
	"context"
	"time"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/logger"
	"signal-advisor/internal/trace"
	"signal-advisor/internal/types"
)

type observableComposer struct {
	composer interfaces.Composer
}

var _ interfaces.Composer = (*observableComposer)(nil)

func Wrap(c interfaces.Composer) interfaces.Composer {
	return &observableComposer{
		composer: c,
	}
}

func (oc *observableComposer) Evaluate(ctx context.Context, instrument string, at time.Time) (*types.Evaluation, error) {
	ctx, span := trace.StartSpan(ctx, "composer.Evaluate")
	defer span.End()

	start := time.Now()

	result, err := oc.composer.Evaluate(ctx, instrument, at)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Signal evaluation failed", err,
			"instrument", instrument,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Signal evaluation completed",
		"instrument", instrument,
		"action", string(result.Action),
		"confidence", result.Confidence,
		"trend", string(result.Trend),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
