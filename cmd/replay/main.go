package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mailhook/internal/bootstrap"
	"mailhook/internal/deadletter"
	"mailhook/pkg/config"
	"mailhook/pkg/logger"
)

func main() {
	limit := flag.Int("limit", 100, "maximum number of pending dead letters to replay")
	flag.Parse()

	cfg, err := config.Load(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	log := logger.NewLogger(cfg.Log.Debug)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	if app.Failed == nil {
		log.Fatal("replay needs db.host; dead letters are only stored in postgres")
	}

	resolved, err := deadletter.NewReplayer(app.Failed, app.Pipeline, log).ReplayPending(ctx, *limit)
	if err != nil {
		log.Fatal("replay failed", zap.Error(err))
	}
	log.Info("Replay finished", zap.Int("resolved", resolved))
}
