package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"signal-advisor/internal/composer"
	"signal-advisor/internal/composer/composerobs"
	"signal-advisor/internal/feed"
	"signal-advisor/internal/interfaces"
	"signal-advisor/internal/logger"
	"signal-advisor/internal/outcome"
	"signal-advisor/internal/scheduler"
	"signal-advisor/internal/signallog"
	"signal-advisor/internal/store"
	"signal-advisor/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := store.LoadConfig(cfgPath)
	must(err)

	must(logger.Init())
	must(trace.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if v := os.Getenv("ADVISOR_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = signallog.CompressOlder(n)
	}

	var signals interfaces.SignalStore
	var indicators interfaces.IndicatorStore
	if cfg.Database.SQLitePath != "" {
		sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		must(err)
		signals = sq
		indicators = sq
		defer sq.Close()
	} else {
		mem := store.NewMemoryStore()
		signals = mem
		indicators = mem
		logger.Warn(ctx, "No sqlite path configured, signals held in memory only")
	}

	bars := feed.NewFileBarFeed(cfg.Feeds.BarsDir)
	news := feed.NewFileNewsFeed(cfg.Feeds.NewsDir)

	comp := composer.New(cfg, bars, news, signals).WithIndicatorStore(indicators)
	tracker := outcome.NewTracker(cfg, bars, signals)
	backtester := outcome.NewBacktester(cfg, signals)

	sched := scheduler.New(cfg, composerobs.Wrap(comp), tracker, backtester)
	must(sched.RegisterAll(ctx))
	sched.Start()

	logger.Info(ctx, "Signal advisor started",
		"universe", len(cfg.Universe),
		"sentiment_enabled", cfg.Sentiment.Enabled,
	)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info(ctx, "Shutting down")
	sched.Stop()
	cancel()
	_ = trace.Shutdown(context.Background())
}
