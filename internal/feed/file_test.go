package feed

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"signal-advisor/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileBarFeed(t *testing.T) {
	dir := t.TempDir()
	// Out of order on disk; the feed must sort by timestamp.
	writeFile(t, filepath.Join(dir, "RELIANCE", "2026-08-28.json"), `[
		{"ts": 120, "open": 101, "high": 102, "low": 100, "close": 101.5, "volume": 500},
		{"ts": 60, "open": 100, "high": 101, "low": 99, "close": 100.5, "volume": 400}
	]`)

	f := NewFileBarFeed(dir)
	bars, err := f.Bars(context.Background(), "RELIANCE", "2026-08-28")
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, expected 2", len(bars))
	}
	if bars[0].Ts != 60 || bars[1].Ts != 120 {
		t.Errorf("bars not sorted: %d, %d", bars[0].Ts, bars[1].Ts)
	}
	if bars[0].Instrument != "RELIANCE" || bars[0].Session != "2026-08-28" {
		t.Errorf("bar identity not filled: %+v", bars[0])
	}
	if bars[0].Close != 100.5 || bars[0].Vol != 400 {
		t.Errorf("bar fields: %+v", bars[0])
	}
}

func TestFileBarFeed_MissingSessionIsEmpty(t *testing.T) {
	f := NewFileBarFeed(t.TempDir())
	bars, err := f.Bars(context.Background(), "RELIANCE", "2026-08-28")
	if err != nil {
		t.Fatalf("a missing session file is no data, not an error: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("bars = %d, expected none", len(bars))
	}
}

func TestFileBarFeed_BarsBetween(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	writeFile(t, filepath.Join(dir, "TCS", "2026-08-27.json"),
		`[{"ts": `+itoa(day1.Add(10*time.Hour).Unix())+`, "close": 100}]`)
	writeFile(t, filepath.Join(dir, "TCS", "2026-08-28.json"),
		`[{"ts": `+itoa(day2.Add(10*time.Hour).Unix())+`, "close": 101},
		  {"ts": `+itoa(day2.Add(20*time.Hour).Unix())+`, "close": 102}]`)

	f := NewFileBarFeed(dir)
	bars, err := f.BarsBetween(context.Background(), "TCS", day1, day2.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("bars between: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, expected the 20:00 bar excluded by the range", len(bars))
	}
	if bars[0].Close != 100 || bars[1].Close != 101 {
		t.Errorf("wrong bars selected: %+v", bars)
	}
}

func TestFileNewsFeed(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	writeFile(t, filepath.Join(dir, "wire.json"), `[
		{"instruments": ["RELIANCE"], "published_at": `+itoa(base.Unix())+`, "sentiment_score": 0.6, "impact": "high", "impact_score": 0.8},
		{"instruments": ["TCS"], "published_at": `+itoa(base.Unix())+`, "sentiment_score": -0.4, "impact": "medium", "impact_score": 0.5},
		{"instruments": ["RELIANCE"], "published_at": `+itoa(base.Add(-48*time.Hour).Unix())+`, "sentiment_score": 0.9, "impact": "high", "impact_score": 0.9}
	]`)

	f := NewFileNewsFeed(dir)
	items, err := f.ItemsFor(context.Background(), "RELIANCE", base.Add(-24*time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, expected other instruments and stale items filtered", len(items))
	}
	if items[0].Sentiment != 0.6 || items[0].Impact != types.ImpactHigh {
		t.Errorf("item fields: %+v", items[0])
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
