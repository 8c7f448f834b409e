package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"kite-futures-bot/internal/backup"
	"kite-futures-bot/internal/broker/zerodha"
	"kite-futures-bot/internal/engine"
	"kite-futures-bot/internal/interfaces"
	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/server"
	"kite-futures-bot/internal/store"
	"kite-futures-bot/internal/tradelog"
)

type app struct {
	cfg *store.Config
	eng *engine.Engine
	srv *server.Server
}

func bootstrap(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	compressOldLogs(ctx)

	mirror := initializeMirror(ctx, cfg)

	st := store.NewPositionStore(cfg.State.File, mirror)

	// Pull the last persisted state down from the backup before the
	// monitor starts, so a redeploy resumes supervision of an open
	// position instead of forgetting it.
	if mirror != nil {
		if err := mirror.Restore(ctx, cfg.State.File); err != nil {
			logger.Warn(ctx, "State restore from backup failed, starting from local state", "error", err)
		}
	}

	brk := zerodha.NewZerodha(zerodha.Params{
		Mode:            cfg.Mode,
		APIKey:          os.Getenv("KITE_API_KEY"),
		AccessToken:     os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:        cfg.Exchange,
		HistoryInterval: cfg.History.Interval,
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	eng := engine.New(cfg, brk, st)
	srv := server.New(eng, os.Getenv("WEBHOOK_SECRET"))

	return &app{cfg: cfg, eng: eng, srv: srv}, nil
}

func configPath() string {
	if v := os.Getenv("CONFIG_FILE"); v != "" {
		return v
	}
	return "config.yaml"
}

func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeMirror builds the S3 state mirror. Backup is a side channel: any
// setup failure downgrades to local-only persistence instead of aborting.
func initializeMirror(ctx context.Context, cfg *store.Config) interfaces.Mirror {
	if !cfg.Backup.Enabled {
		logger.Info(ctx, "State backup disabled")
		return nil
	}

	mirror, err := backup.New(ctx, backup.Config{
		Endpoint:       cfg.Backup.Endpoint,
		Region:         cfg.Backup.Region,
		Bucket:         cfg.Backup.Bucket,
		Prefix:         cfg.Backup.Prefix,
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		ForcePathStyle: cfg.Backup.ForcePathStyle,
	})
	if err != nil {
		logger.Warn(ctx, "State backup unavailable, continuing with local state only", "error", err)
		return nil
	}

	logger.Info(ctx, "State backup enabled", "bucket", cfg.Backup.Bucket, "prefix", cfg.Backup.Prefix)
	return mirror
}
