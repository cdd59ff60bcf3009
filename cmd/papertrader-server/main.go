package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"papertrader/internal/api"
	"papertrader/internal/config"
	"papertrader/internal/engine"
	"papertrader/internal/httpapi"
	"papertrader/internal/market"
	"papertrader/internal/scheduler"
	"papertrader/internal/session"
	"papertrader/internal/store"
	"papertrader/internal/util"
)

const defaultConfigPath = "config/papertrader.yaml"

func main() {
	// Load config. The default file is optional; an explicit one is not.
	cfgPath := defaultConfigPath
	if p := os.Getenv("PAPERTRADER_CONFIG"); p != "" {
		cfgPath = p
	} else if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		cfgPath = ""
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg, logger); err != nil {
		logger.Error("papertrader-server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		logger.Warn("Alpaca credentials not configured; price fetches will fail")
	}

	alpaca := market.NewAlpacaProvider(market.AlpacaOptions{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		Feed:            cfg.Alpaca.Feed,
		RateLimitPerMin: cfg.Alpaca.RateLimitPerMin,
		RateBurst:       cfg.Alpaca.RateBurst,
		MaxAttempts:     cfg.Alpaca.MaxAttempts,
		RetryDelay:      cfg.Alpaca.RetryDelay,
		WindowDays:      cfg.Trading.WindowDays,
	}, logger)

	var provider market.Provider = alpaca
	var sched *scheduler.Scheduler
	if cfg.Cache.Enabled {
		ps := store.NewParquetStore(cfg.Storage.DataDir)
		provider = market.NewCachedProvider(alpaca, ps, cfg.Trading.WindowDays, logger)

		s, err := scheduler.New(logger)
		if err != nil {
			return err
		}
		if err := s.NewIntervalJob("prune-window-cache",
			scheduler.PruneWindowsTask(ps, cfg.Cache.TTL, logger),
			cfg.Cache.PruneInterval, true); err != nil {
			return err
		}
		sched = s
		logger.Info("window cache enabled", "dataDir", cfg.Storage.DataDir, "ttl", cfg.Cache.TTL)
	}

	opts := session.Options{
		Engine:   engine.New(decimal.NewFromFloat(cfg.Trading.StartingCash)),
		Provider: provider,
		Logger:   logger,
	}
	if cfg.Trading.RecordResults {
		results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer results.Close()
		opts.Results = results
		logger.Info("results journal enabled", "path", cfg.Storage.SQLitePath)
	}
	svc := session.New(opts)

	if sched != nil {
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("stopping scheduler", "error", err)
			}
		}()
	}

	handler := httpapi.NewServer(svc, cfg.Server.Port, logger).Handler()
	srv := api.NewServer(cfg, handler, logger)

	logger.Info("papertrader-server starting",
		"host", cfg.Server.Host, "port", cfg.Server.Port, "grpcPort", cfg.Server.GRPCPort,
		"startingCash", cfg.Trading.StartingCash)
	return srv.ListenAndServe(ctx)
}
