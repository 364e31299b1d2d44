package interfaces

import (
	"context"
	"time"

	"signal-advisor/internal/types"
)

// Composer produces one directional evaluation per instrument per instant.
type Composer interface {
	Evaluate(ctx context.Context, instrument string, at time.Time) (*types.Evaluation, error)
}
