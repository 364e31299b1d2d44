package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const minimalConfig = `
universe: [RELIANCE, TCS]
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Session.Open != "09:15" || cfg.Session.LastEntry != "14:30" {
		t.Errorf("session defaults not applied: %+v", cfg.Session)
	}
	if cfg.Indicators.RSIPeriod != 14 || cfg.Indicators.MACDSlow != 26 {
		t.Errorf("indicator defaults not applied: %+v", cfg.Indicators)
	}
	if cfg.Composer.MinConfidence != 60 {
		t.Errorf("composer default min_confidence = %f", cfg.Composer.MinConfidence)
	}
	if cfg.Schedule.Workers != 4 {
		t.Errorf("schedule default workers = %d", cfg.Schedule.Workers)
	}
	if _, ok := cfg.Sentiment.Profiles["default"]; !ok {
		t.Error("default decay profile missing")
	}
}

func TestLoadConfig_EmptyUniverseRejected(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "universe: []\n")); err == nil {
		t.Fatal("expected validation failure for empty universe")
	}
}

func TestLoadConfig_BadProfileWeightsRejected(t *testing.T) {
	body := minimalConfig + `
sentiment:
  enabled: true
  profiles:
    skewed:
      half_life_minutes: 60
      weight_15min: 0.7
      weight_1h: 0.3
      weight_4h: 0.2
      weight_rest: 0.1
      breaking_news_boost: 1.5
      market_hours_boost: 1.2
      pre_market_boost: 1.1
      min_impact_threshold: 0.01
`
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil {
		t.Fatal("expected weight-sum validation failure")
	}
	if !strings.Contains(err.Error(), "sum to 1.0") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoadConfig_BadMinConfidenceRejected(t *testing.T) {
	body := minimalConfig + `
composer:
  min_confidence: 150
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("expected min_confidence validation failure")
	}
}

func TestLoadConfig_BadSessionOrderRejected(t *testing.T) {
	body := minimalConfig + `
session:
  open: "14:00"
  last_entry: "10:00"
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("expected session ordering validation failure")
	}
}

func TestLoadConfig_LookbackCapRejected(t *testing.T) {
	body := minimalConfig + `
sentiment:
  lookback_hours: 200
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("expected lookback_hours validation failure")
	}
}

func TestProfileLookup(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p, err := cfg.Profile("")
	if err != nil || p.Name != "default" {
		t.Errorf("empty name should resolve to default profile, got %v / %v", p, err)
	}
	if _, err := cfg.Profile("missing"); err == nil {
		t.Error("unknown profile name must be an error, not a fallback")
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:15")
	if err != nil || m != 555 {
		t.Errorf("ParseClock(09:15) = %d, %v", m, err)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Error("expected error for invalid clock time")
	}
}
