package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailhook/pkg/logger"
	"mailhook/pkg/metrics"
)

// ChatSink delivers notifications through a Sender. Errors are logged,
// counted and reported to the observer; Deliver never returns them.
type ChatSink struct {
	sender   Sender
	observer FailureObserver
	logger   *zap.Logger
}

func NewChatSink(sender Sender, observer FailureObserver, logger *zap.Logger) *ChatSink {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ChatSink{sender: sender, observer: observer, logger: logger}
}

func (s *ChatSink) Deliver(ctx context.Context, text string) bool {
	start := time.Now()
	err := s.sender.Send(ctx, text)
	if err != nil {
		metrics.RecordStageLatency(string(StageDeliver), "error", time.Since(start))
		metrics.IncrementChatDelivery("failed")
		logger.WithTrace(ctx, s.logger).Warn("Chat delivery failed", zap.Error(err))
		s.observer.ObserveFailure(newFailure(StageDeliver, err))
		return false
	}
	metrics.RecordStageLatency(string(StageDeliver), "ok", time.Since(start))
	metrics.IncrementChatDelivery("sent")
	return true
}

// LogSink writes notifications to the log instead of a chat.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, text string) bool {
	logger.WithTrace(ctx, s.logger).Info("New email notification", zap.String("text", text))
	metrics.IncrementChatDelivery("logged")
	return true
}
