// Package bootstrap wires the relay from a validated Config. Both binaries
// share it so the pull worker and the push endpoint run the same pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	mqcontracts "mailhook/contracts/mq"
	"mailhook/internal/deadletter"
	"mailhook/internal/gmail"
	"mailhook/internal/httpserver"
	"mailhook/internal/notify"
	"mailhook/internal/pubsub"
	"mailhook/internal/repository"
	"mailhook/internal/telegram"
	"mailhook/pkg/config"
	"mailhook/pkg/db"
	"mailhook/pkg/mq"
	"mailhook/pkg/redis"
	"mailhook/pkg/util"
)

// retryCounterTTL bounds how long an attempt count survives without a new
// delivery of the same cursor.
const retryCounterTTL = 24 * time.Hour

// App holds everything built from the configuration. Optional backends are
// nil when their section is not configured.
type App struct {
	Config      *config.Config
	Gmail       *gmail.Client
	Telegram    *telegram.Client
	Pipeline    *notify.Pipeline
	Observer    notify.FailureObserver
	DeadLetters notify.DeadLetterSink
	Attempts    notify.AttemptCounter
	Failed      *repository.FailedNotificationRepository

	Redis     *goredis.Client
	DB        *pgxpool.Pool
	Publisher *mq.Publisher

	logger  *zap.Logger
	closers []func()
}

// New connects the configured backends and builds the pipeline. Close
// releases whatever was opened, also when New fails halfway.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Config: cfg, Observer: notify.Observers{notify.NewLogObserver(logger), notify.MetricsObserver{}}, logger: logger}

	if err := app.connectBackends(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildPipeline(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) connectBackends(ctx context.Context) error {
	cfg := a.Config

	if cfg.Redis.Enabled() {
		a.Redis = redis.NewRedisClient(cfg.Redis, a.logger)
		a.closers = append(a.closers, func() { _ = a.Redis.Close() })
	}

	if cfg.DB.Enabled() {
		pool, err := db.NewConnection(cfg.DB, a.logger)
		if err != nil {
			return fmt.Errorf("db initialization failed: %w", err)
		}
		a.DB = pool
		a.closers = append(a.closers, pool.Close)

		a.Failed = repository.NewFailedNotificationRepository(pool)
		if err := a.Failed.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create failed_notifications table: %w", err)
		}
	}

	if cfg.MQ.Enabled() {
		pub, err := mq.NewPublisher(cfg.MQ.URL, mqcontracts.DeadLetterRoutingKey)
		if err != nil {
			return fmt.Errorf("mq initialization failed: %w", err)
		}
		a.Publisher = pub
		a.closers = append(a.closers, pub.Close)
	}
	return nil
}

func (a *App) buildPipeline(ctx context.Context) error {
	cfg := a.Config

	httpClient, err := gmail.NewHTTPClient(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return fmt.Errorf("gmail auth: %w", err)
	}
	a.Gmail, err = gmail.NewClient(ctx, gmail.Options{
		User:              cfg.Gmail.User,
		RequestsPerSecond: cfg.Gmail.RequestsPerSecond,
		Burst:             cfg.Gmail.Burst,
	}, a.logger, option.WithHTTPClient(httpClient))
	if err != nil {
		return err
	}

	var sink notify.Sink
	if cfg.Telegram.Enabled {
		a.Telegram, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIEndpoint, &http.Client{Timeout: 30 * time.Second}, a.logger)
		if err != nil {
			return err
		}
		sink = notify.NewChatSink(a.Telegram, a.Observer, a.logger)
	} else {
		a.logger.Info("Telegram disabled, notifications go to the log")
		sink = notify.NewLogSink(a.logger)
	}

	limit := cfg.Notify.BodyLimit
	if !cfg.Telegram.Enabled {
		limit = cfg.Notify.ConsoleBodyLimit
	}

	var deduper notify.Deduper
	if a.Redis != nil {
		deduper = util.NewDeduperWithLogger(a.Redis, cfg.Notify.DedupTTL, a.logger)
		a.Attempts = util.NewRetryCounter(a.Redis, retryCounterTTL)
	}

	a.DeadLetters, err = a.deadLetterSink()
	if err != nil {
		return err
	}

	a.Pipeline = notify.NewPipeline(
		notify.NewResolver(a.Gmail, a.logger),
		notify.NewDecoder(a.Gmail, a.logger),
		notify.NewFormatter(limit),
		sink,
		deduper,
		a.Observer,
		a.logger,
	)
	return nil
}

func (a *App) deadLetterSink() (notify.DeadLetterSink, error) {
	switch a.Config.Notify.DeadLetter {
	case "postgres":
		if a.Failed == nil {
			return nil, errors.New("dead letter postgres needs a database")
		}
		return deadletter.NewPostgresSink(a.Failed), nil
	case "amqp":
		if a.Publisher == nil {
			return nil, errors.New("dead letter amqp needs a broker")
		}
		return deadletter.NewAMQPSink(a.Publisher, mqcontracts.DeadLetterRoutingKey), nil
	default:
		return deadletter.NewLogSink(a.logger), nil
	}
}

// NewPuller builds the subscription puller for the pull worker.
func (a *App) NewPuller(ctx context.Context) (*notify.Puller, error) {
	cfg := a.Config

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}
	sub, err := pubsub.NewSubscriber(ctx, cfg.PubSub.Subscription, a.logger, opts...)
	if err != nil {
		return nil, err
	}
	sub.WithPullTimeout(cfg.PubSub.PullTimeout)

	ackPolicy, err := notify.ParseAckPolicy(cfg.Notify.AckPolicy)
	if err != nil {
		return nil, err
	}
	errorMode, err := notify.ParseErrorMode(cfg.Notify.ErrorMode)
	if err != nil {
		return nil, err
	}

	return notify.NewPuller(sub, a.Pipeline, notify.PullerConfig{
		MaxMessages: cfg.PubSub.MaxMessages,
		AckPolicy:   ackPolicy,
		ErrorMode:   errorMode,
		MaxAttempts: cfg.Notify.MaxAttempts,
		DeadLetters: a.DeadLetters,
		Attempts:    a.Attempts,
		Observer:    a.Observer,
	}, a.logger)
}

// NewWatchRenewer returns nil when no watch topic is configured.
func (a *App) NewWatchRenewer() *gmail.WatchRenewer {
	w := a.Config.Watch
	if w.Topic == "" {
		return nil
	}
	return gmail.NewWatchRenewer(a.Gmail, w.Topic, w.LabelIDs, w.RenewInterval, a.logger)
}

// ReadinessChecks reports one check per connected backend.
func (a *App) ReadinessChecks() map[string]httpserver.ReadinessCheck {
	checks := make(map[string]httpserver.ReadinessCheck)
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, a.Redis) }
	}
	if a.DB != nil {
		checks["db"] = func(ctx context.Context) error { return a.DB.Ping(ctx) }
	}
	if a.Publisher != nil {
		checks["mq"] = func(context.Context) error {
			if !a.Publisher.IsConnected() {
				return errors.New("broker connection closed")
			}
			return nil
		}
	}
	return checks
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
