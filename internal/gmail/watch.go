package gmail

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type watchRegistrar interface {
	Watch(ctx context.Context, topic string, labelIDs []string) (WatchResult, error)
}

// WatchRenewer keeps the mailbox watch alive. Gmail drops a watch after
// seven days unless it is renewed.
type WatchRenewer struct {
	client   watchRegistrar
	topic    string
	labelIDs []string
	interval time.Duration
	logger   *zap.Logger
}

func NewWatchRenewer(client watchRegistrar, topic string, labelIDs []string, interval time.Duration, logger *zap.Logger) *WatchRenewer {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &WatchRenewer{
		client:   client,
		topic:    topic,
		labelIDs: labelIDs,
		interval: interval,
		logger:   logger,
	}
}

// RenewOnce registers the watch and logs its position and expiry.
func (w *WatchRenewer) RenewOnce(ctx context.Context) (WatchResult, error) {
	res, err := w.client.Watch(ctx, w.topic, w.labelIDs)
	if err != nil {
		w.logger.Error("Failed to renew Gmail watch",
			zap.String("topic", w.topic),
			zap.Error(err),
		)
		return WatchResult{}, err
	}
	w.logger.Info("Gmail watch renewed",
		zap.String("topic", w.topic),
		zap.Stringer("history_id", res.HistoryID),
		zap.Time("expiration", res.Expiration),
	)
	return res, nil
}

// Run renews immediately and then every interval until ctx is done.
func (w *WatchRenewer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		_, _ = w.RenewOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("Gmail watch renewer stopped")
			return
		case <-ticker.C:
		}
	}
}
