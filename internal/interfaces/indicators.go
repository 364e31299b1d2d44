package interfaces

import (
	"context"

	"signal-advisor/internal/types"
)

// IndicatorStore upserts per-session indicator snapshots. Recomputed values
// supersede earlier rows for the same (instrument, session, kind).
type IndicatorStore interface {
	UpsertIndicators(ctx context.Context, snaps []types.IndicatorSnapshot) error
}
