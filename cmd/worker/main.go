package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mailhook/internal/bootstrap"
	"mailhook/pkg/config"
	"mailhook/pkg/logger"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	log := logger.NewLogger(cfg.Log.Debug)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	if err := cfg.PubSub.Validate(); err != nil {
		log.Fatal("invalid pubsub config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Init backends and pipeline
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	// 3. Keep the Gmail watch registered
	if renewer := app.NewWatchRenewer(); renewer != nil {
		go renewer.Run(ctx)
	}

	// 4. Init puller
	puller, err := app.NewPuller(ctx)
	if err != nil {
		log.Fatal("puller initialization failed", zap.Error(err))
	}

	log.Info("Starting mailhook worker...",
		zap.String("subscription", cfg.PubSub.Subscription),
		zap.String("env", config.GetConfigEnv()),
	)

	// 5. Run until signalled; a zero interval pulls once and exits
	if err := puller.Run(ctx, cfg.PubSub.Interval); err != nil {
		log.Error("worker stopped with error", zap.Error(err))
		app.Close()
		os.Exit(1)
	}
	log.Info("Worker stopped")
}
