package notify

import (
	"time"

	"go.uber.org/zap"

	"mailhook/pkg/metrics"
	"mailhook/pkg/util"
)

type Stage string

const (
	StagePayload    Stage = "payload"
	StageResolve    Stage = "resolve"
	StageDecode     Stage = "decode"
	StageDeliver    Stage = "deliver"
	StageDeadLetter Stage = "dead_letter"
	StageAck        Stage = "ack"
)

// FailureRecord describes one failed stage.
type FailureRecord struct {
	Stage     Stage
	Cursor    Cursor
	MessageID string
	AckID     string
	Err       error
	Retryable bool
	ErrorType string
	At        time.Time
}

func newFailure(stage Stage, err error) FailureRecord {
	retryable, errType := util.IsRetryableError(err)
	return FailureRecord{
		Stage:     stage,
		Err:       err,
		Retryable: retryable,
		ErrorType: errType,
		At:        time.Now(),
	}
}

// FailureObserver receives failure records. Implementations must not block.
type FailureObserver interface {
	ObserveFailure(rec FailureRecord)
}

// ObserverFunc adapts a function to FailureObserver.
type ObserverFunc func(rec FailureRecord)

func (f ObserverFunc) ObserveFailure(rec FailureRecord) { f(rec) }

// Observers fans a record out to every observer in order.
type Observers []FailureObserver

func (o Observers) ObserveFailure(rec FailureRecord) {
	for _, obs := range o {
		obs.ObserveFailure(rec)
	}
}

type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) ObserveFailure(rec FailureRecord) {
	l.logger.Error("Notification stage failed",
		zap.String("stage", string(rec.Stage)),
		zap.Stringer("cursor", rec.Cursor),
		zap.String("message_id", rec.MessageID),
		zap.String("ack_id", rec.AckID),
		zap.Bool("retryable", rec.Retryable),
		zap.String("error_type", rec.ErrorType),
		zap.Error(rec.Err),
	)
}

// MetricsObserver counts failures per stage.
type MetricsObserver struct{}

func (MetricsObserver) ObserveFailure(rec FailureRecord) {
	metrics.IncrementPipelineFailure(string(rec.Stage), rec.Retryable)
}

type nopObserver struct{}

func (nopObserver) ObserveFailure(FailureRecord) {}
