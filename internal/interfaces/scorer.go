package interfaces

import (
	"context"

	"signal-advisor/internal/types"
)

// Vote is one directional opinion contributed to the composer. Strong votes
// count double during aggregation.
type Vote struct {
	Direction types.Direction
	Strong    bool
	Source    string
}

// Scorer turns an indicator set into directional votes. The built-in
// technical scorer implements this; an external model predictor can be
// plugged in as one more scorer without changing the fusion logic.
type Scorer interface {
	Score(ctx context.Context, instrument string, latest types.PriceBar, inds types.IndicatorSet) ([]Vote, error)
}
