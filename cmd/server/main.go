package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailhook/internal/bootstrap"
	"mailhook/internal/entrypoint"
	"mailhook/internal/httpserver"
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
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Init backends and pipeline
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	// 3. Init handlers
	gmailHandler := entrypoint.NewGmailHandler(app.Pipeline, log)
	var chatHandler httpserver.Handler
	if app.Telegram != nil {
		chatHandler = entrypoint.NewChatHandler(cfg.Telegram.ChatID, entrypoint.EchoResponder{}, app.Telegram, log)
	}

	// 4. Init router
	router := httpserver.NewRouter(gmailHandler, chatHandler, app.ReadinessChecks(), log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. Run server
	go func() {
		log.Info("Starting mailhook server...", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
