package interfaces

import (
	"context"
	"time"

	"signal-advisor/internal/types"
)

// BarFeed supplies ordered OHLCV bars. Implementations must return bars
// sorted by timestamp and bound every query by the requested window.
type BarFeed interface {
	Bars(ctx context.Context, instrument, session string) ([]types.PriceBar, error)
	BarsBetween(ctx context.Context, instrument string, from, to time.Time) ([]types.PriceBar, error)
}

// NewsFeed supplies pre-scored news items mentioning an instrument.
type NewsFeed interface {
	ItemsFor(ctx context.Context, instrument string, from, to time.Time) ([]types.NewsItem, error)
}
