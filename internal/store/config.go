package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"signal-advisor/internal/sentiment"
)

type Config struct {
	Timezone string   `yaml:"timezone"`
	Universe []string `yaml:"universe"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Feeds struct {
		BarsDir string `yaml:"bars_dir"`
		NewsDir string `yaml:"news_dir"`
	} `yaml:"feeds"`
	Session struct {
		PreMarketOpen string `yaml:"pre_market_open"`
		Open          string `yaml:"open"`
		LastEntry     string `yaml:"last_entry"`
		Close         string `yaml:"close"`
	} `yaml:"session"`
	Indicators struct {
		RSIPeriod  int     `yaml:"rsi_period"`
		SMAWindows []int   `yaml:"sma_windows"`
		EMAWindows []int   `yaml:"ema_windows"`
		MACDFast   int     `yaml:"macd_fast"`
		MACDSlow   int     `yaml:"macd_slow"`
		MACDSignal int     `yaml:"macd_signal"`
		BBWindow   int     `yaml:"bb_window"`
		BBStdDev   float64 `yaml:"bb_stddev"`
	} `yaml:"indicators"`
	Sentiment struct {
		Enabled        bool                                `yaml:"enabled"`
		DefaultProfile string                              `yaml:"default_profile"`
		LookbackHours  int                                 `yaml:"lookback_hours"`
		CacheMinutes   int                                 `yaml:"cache_minutes"`
		Profiles       map[string]*sentiment.DecayProfile `yaml:"profiles"`
	} `yaml:"sentiment"`
	Composer struct {
		MinConfidence  float64 `yaml:"min_confidence"`
		HoldConfidence float64 `yaml:"hold_confidence"`
		StopPct        float64 `yaml:"stop_pct"`
		TargetPct      float64 `yaml:"target_pct"`
		MaxPositionPct float64 `yaml:"max_position_pct"`
	} `yaml:"composer"`
	Outcome struct {
		ForwardWindowDays int `yaml:"forward_window_days"`
	} `yaml:"outcome"`
	Schedule struct {
		GenerateCron string `yaml:"generate_cron"`
		EvaluateCron string `yaml:"evaluate_cron"`
		Workers      int    `yaml:"workers"`
	} `yaml:"schedule"`
}

func (c *Config) Validate() error {
	if len(c.Universe) == 0 {
		return errors.New("universe cannot be empty")
	}
	for name, clock := range map[string]string{
		"session.pre_market_open": c.Session.PreMarketOpen,
		"session.open":            c.Session.Open,
		"session.last_entry":      c.Session.LastEntry,
		"session.close":           c.Session.Close,
	} {
		if _, err := ParseClock(clock); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	open, _ := ParseClock(c.Session.Open)
	lastEntry, _ := ParseClock(c.Session.LastEntry)
	cls, _ := ParseClock(c.Session.Close)
	if !(open < lastEntry && lastEntry <= cls) {
		return fmt.Errorf("session times must satisfy open < last_entry <= close, got %s < %s <= %s",
			c.Session.Open, c.Session.LastEntry, c.Session.Close)
	}
	if c.Composer.MinConfidence < 0 || c.Composer.MinConfidence > 100 {
		return fmt.Errorf("composer.min_confidence must be between 0-100, got %.2f", c.Composer.MinConfidence)
	}
	if c.Composer.StopPct <= 0 || c.Composer.TargetPct <= 0 {
		return fmt.Errorf("composer stop_pct and target_pct must be > 0, got %.2f / %.2f",
			c.Composer.StopPct, c.Composer.TargetPct)
	}
	if c.Composer.MaxPositionPct <= 0 || c.Composer.MaxPositionPct > 100 {
		return fmt.Errorf("composer.max_position_pct must be between 0-100, got %.2f", c.Composer.MaxPositionPct)
	}
	if c.Sentiment.LookbackHours > 24*7 {
		return fmt.Errorf("sentiment.lookback_hours must not exceed 168 (7 days), got %d", c.Sentiment.LookbackHours)
	}
	for name, p := range c.Sentiment.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if c.Sentiment.Enabled {
		if _, ok := c.Sentiment.Profiles[c.Sentiment.DefaultProfile]; !ok {
			return fmt.Errorf("sentiment.default_profile %q is not defined in sentiment.profiles", c.Sentiment.DefaultProfile)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Profile returns the named decay profile, falling back to the configured
// default when name is empty. Unknown names are an error, not a fallback.
func (c *Config) Profile(name string) (*sentiment.DecayProfile, error) {
	if name == "" {
		name = c.Sentiment.DefaultProfile
	}
	p, ok := c.Sentiment.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown decay profile %q", name)
	}
	return p, nil
}

// Location returns the configured exchange timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("IST", 19800)
	}
	return loc
}

// ParseClock converts "HH:MM" to minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Asia/Kolkata"
	}
	if c.Session.PreMarketOpen == "" {
		c.Session.PreMarketOpen = "08:00"
	}
	if c.Session.Open == "" {
		c.Session.Open = "09:15"
	}
	if c.Session.LastEntry == "" {
		c.Session.LastEntry = "14:30"
	}
	if c.Session.Close == "" {
		c.Session.Close = "15:30"
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if len(c.Indicators.SMAWindows) == 0 {
		c.Indicators.SMAWindows = []int{20, 50}
	}
	if len(c.Indicators.EMAWindows) == 0 {
		c.Indicators.EMAWindows = []int{9, 21}
	}
	if c.Indicators.MACDFast == 0 {
		c.Indicators.MACDFast = 12
	}
	if c.Indicators.MACDSlow == 0 {
		c.Indicators.MACDSlow = 26
	}
	if c.Indicators.MACDSignal == 0 {
		c.Indicators.MACDSignal = 9
	}
	if c.Indicators.BBWindow == 0 {
		c.Indicators.BBWindow = 20
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2.0
	}
	if c.Sentiment.LookbackHours == 0 {
		c.Sentiment.LookbackHours = 24
	}
	if c.Sentiment.CacheMinutes == 0 {
		c.Sentiment.CacheMinutes = 10
	}
	if c.Sentiment.DefaultProfile == "" {
		c.Sentiment.DefaultProfile = "default"
	}
	if c.Sentiment.Profiles == nil {
		c.Sentiment.Profiles = map[string]*sentiment.DecayProfile{}
	}
	if _, ok := c.Sentiment.Profiles["default"]; !ok {
		c.Sentiment.Profiles["default"] = sentiment.DefaultProfile()
	}
	if c.Composer.MinConfidence == 0 {
		c.Composer.MinConfidence = 60
	}
	if c.Composer.HoldConfidence == 0 {
		c.Composer.HoldConfidence = 30
	}
	if c.Composer.StopPct == 0 {
		c.Composer.StopPct = 1.0
	}
	if c.Composer.TargetPct == 0 {
		c.Composer.TargetPct = 1.5
	}
	if c.Composer.MaxPositionPct == 0 {
		c.Composer.MaxPositionPct = 10
	}
	if c.Outcome.ForwardWindowDays == 0 {
		c.Outcome.ForwardWindowDays = 2
	}
	if c.Schedule.GenerateCron == "" {
		c.Schedule.GenerateCron = "0 */5 9-15 * * 1-5"
	}
	if c.Schedule.EvaluateCron == "" {
		c.Schedule.EvaluateCron = "30 */5 9-15 * * 1-5"
	}
	if c.Schedule.Workers == 0 {
		c.Schedule.Workers = 4
	}
}
