package deadletter

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "mailhook/contracts/mq"
	"mailhook/internal/notify"
	"mailhook/internal/repository"
	"mailhook/pkg/trace"
)

// LogSink writes dead letters to the log only.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) DeadLetter(ctx context.Context, dl notify.DeadLetter) error {
	s.logger.Error("Notification dead-lettered",
		zap.String("trace_id", trace.FromContext(ctx)),
		zap.String("ack_id", dl.AckID),
		zap.Stringer("cursor", dl.Cursor),
		zap.String("message_id", dl.MessageID),
		zap.String("outcome", string(dl.Outcome)),
		zap.Int64("attempts", dl.Attempts),
		zap.ByteString("payload", dl.Payload),
		zap.String("error", dl.Error),
	)
	return nil
}

type failedNotificationInserter interface {
	Insert(ctx context.Context, n repository.FailedNotification) error
}

// PostgresSink stores dead letters in the failed_notifications table.
type PostgresSink struct {
	repo failedNotificationInserter
}

func NewPostgresSink(repo failedNotificationInserter) *PostgresSink {
	return &PostgresSink{repo: repo}
}

func (s *PostgresSink) DeadLetter(ctx context.Context, dl notify.DeadLetter) error {
	err := s.repo.Insert(ctx, repository.FailedNotification{
		AckID:          dl.AckID,
		TransportMsgID: dl.TransportMsgID,
		HistoryID:      uint64(dl.Cursor),
		MessageID:      dl.MessageID,
		Outcome:        string(dl.Outcome),
		ErrorMessage:   dl.Error,
		Payload:        dl.Payload,
		Attempts:       dl.Attempts,
		TraceID:        trace.FromContext(ctx),
		FailedAt:       dl.FailedAt,
	})
	if err != nil {
		return fmt.Errorf("insert failed notification: %w", err)
	}
	return nil
}

type dlqPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError string) error
}

// AMQPSink publishes dead letters to the DLQ exchange.
type AMQPSink struct {
	publisher  dlqPublisher
	routingKey string
}

func NewAMQPSink(publisher dlqPublisher, routingKey string) *AMQPSink {
	if routingKey == "" {
		routingKey = mqcontracts.DeadLetterRoutingKey
	}
	return &AMQPSink{publisher: publisher, routingKey: routingKey}
}

func (s *AMQPSink) DeadLetter(ctx context.Context, dl notify.DeadLetter) error {
	body, err := json.Marshal(mqcontracts.NotificationDeadLetteredPayload{
		AckID:          dl.AckID,
		TransportMsgID: dl.TransportMsgID,
		HistoryID:      uint64(dl.Cursor),
		MessageID:      dl.MessageID,
		Outcome:        string(dl.Outcome),
		Error:          dl.Error,
		Payload:        string(dl.Payload),
		Attempts:       dl.Attempts,
		TraceID:        trace.FromContext(ctx),
		FailedAt:       dl.FailedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	if err := s.publisher.PublishToDLQ(ctx, s.routingKey, body, dl.Error); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
