package deadletter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailhook/internal/notify"
	"mailhook/internal/repository"
	"mailhook/pkg/logger"
	"mailhook/pkg/trace"
)

type pendingStore interface {
	ListPending(ctx context.Context, limit int) ([]repository.FailedNotification, error)
	MarkResolved(ctx context.Context, id int64) error
}

type notificationProcessor interface {
	Process(ctx context.Context, cursor notify.Cursor) notify.Result
	ProcessPayload(ctx context.Context, data []byte) notify.Result
}

// Replayer runs stored dead letters through the pipeline again and marks
// the ones that no longer fail as resolved.
type Replayer struct {
	store     pendingStore
	processor notificationProcessor
	logger    *zap.Logger
}

func NewReplayer(store pendingStore, processor notificationProcessor, logger *zap.Logger) *Replayer {
	return &Replayer{store: store, processor: processor, logger: logger}
}

// ReplayPending replays up to limit pending records, oldest first, and
// returns how many were resolved. A record that fails again stays pending.
func (r *Replayer) ReplayPending(ctx context.Context, limit int) (int, error) {
	pending, err := r.store.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	resolved := 0
	for _, n := range pending {
		if err := r.replay(ctx, n); err != nil {
			// 记录错误但继续处理其他记录
			r.logger.Warn("Replay failed", zap.Int64("id", n.ID), zap.Error(err))
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (r *Replayer) replay(ctx context.Context, n repository.FailedNotification) error {
	if n.TraceID != "" {
		ctx = trace.WithContext(ctx, n.TraceID)
	} else {
		ctx = trace.Ensure(ctx)
	}

	var res notify.Result
	if n.HistoryID != 0 {
		res = r.processor.Process(ctx, notify.Cursor(n.HistoryID))
	} else {
		res = r.processor.ProcessPayload(ctx, n.Payload)
	}
	if res.Failed() {
		return fmt.Errorf("outcome %s: %w", res.Outcome, res.Err)
	}

	if err := r.store.MarkResolved(ctx, n.ID); err != nil {
		return fmt.Errorf("failed to mark resolved: %w", err)
	}
	logger.WithTrace(ctx, r.logger).Info("Dead letter replayed",
		zap.Int64("id", n.ID),
		zap.String("outcome", string(res.Outcome)),
	)
	return nil
}
