// Package feed provides file-backed replay implementations of the bar and
// news feeds. Ingestion pipelines live outside this module; these feeds
// read what such a pipeline has written to disk.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/types"
)

// FileBarFeed reads bars from <dir>/<instrument>/<session>.json, one JSON
// array of bars per session file.
type FileBarFeed struct {
	dir string
}

var _ interfaces.BarFeed = (*FileBarFeed)(nil)

func NewFileBarFeed(dir string) *FileBarFeed {
	return &FileBarFeed{dir: dir}
}

type barRecord struct {
	Ts     int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (f *FileBarFeed) Bars(_ context.Context, instrument, session string) ([]types.PriceBar, error) {
	path := filepath.Join(f.dir, instrument, session+".json")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", path, err)
	}

	var records []barRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode bars %s: %w", path, err)
	}

	bars := make([]types.PriceBar, len(records))
	for i, r := range records {
		bars[i] = types.PriceBar{
			Instrument: instrument,
			Session:    session,
			Ts:         r.Ts,
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Vol:        r.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Ts < bars[j].Ts })
	return bars, nil
}

func (f *FileBarFeed) BarsBetween(ctx context.Context, instrument string, from, to time.Time) ([]types.PriceBar, error) {
	var out []types.PriceBar
	for day := from.Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		session := day.Format("2006-01-02")
		bars, err := f.Bars(ctx, instrument, session)
		if err != nil {
			return nil, err
		}
		for _, b := range bars {
			if b.Ts >= from.Unix() && b.Ts <= to.Unix() {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// FileNewsFeed reads pre-scored news items from *.json files in a
// directory, each holding a JSON array of items.
type FileNewsFeed struct {
	dir string
}

var _ interfaces.NewsFeed = (*FileNewsFeed)(nil)

func NewFileNewsFeed(dir string) *FileNewsFeed {
	return &FileNewsFeed{dir: dir}
}

type newsRecord struct {
	Instruments []string `json:"instruments"`
	PublishedAt int64    `json:"published_at"`
	Sentiment   float64  `json:"sentiment_score"`
	Impact      string   `json:"impact"`
	ImpactScore float64  `json:"impact_score"`
}

func (f *FileNewsFeed) ItemsFor(_ context.Context, instrument string, from, to time.Time) ([]types.NewsItem, error) {
	paths, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var out []types.NewsItem
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read news %s: %w", path, err)
		}
		var records []newsRecord
		if err := json.Unmarshal(b, &records); err != nil {
			return nil, fmt.Errorf("decode news %s: %w", path, err)
		}
		for _, r := range records {
			item := types.NewsItem{
				Instruments: r.Instruments,
				PublishedAt: r.PublishedAt,
				Sentiment:   r.Sentiment,
				Impact:      types.Impact(r.Impact),
				ImpactScore: r.ImpactScore,
			}
			if !item.Mentions(instrument) {
				continue
			}
			if item.PublishedAt < from.Unix() || item.PublishedAt > to.Unix() {
				continue
			}
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt < out[j].PublishedAt })
	return out, nil
}
