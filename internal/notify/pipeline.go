package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailhook/pkg/logger"
	"mailhook/pkg/metrics"
)

const dedupHandler = "notify"

// Pipeline resolves a cursor, decodes the added message, formats it and
// hands it to the sink. It is shared by the pull worker and the push
// endpoint.
type Pipeline struct {
	resolver  *Resolver
	decoder   *Decoder
	formatter Formatter
	sink      Sink
	deduper   Deduper
	observer  FailureObserver
	logger    *zap.Logger
}

// NewPipeline wires the stages. deduper and observer may be nil.
func NewPipeline(
	resolver *Resolver,
	decoder *Decoder,
	formatter Formatter,
	sink Sink,
	deduper Deduper,
	observer FailureObserver,
	logger *zap.Logger,
) *Pipeline {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Pipeline{
		resolver:  resolver,
		decoder:   decoder,
		formatter: formatter,
		sink:      sink,
		deduper:   deduper,
		observer:  observer,
		logger:    logger,
	}
}

// ProcessPayload decodes a notification payload and processes its cursor.
func (p *Pipeline) ProcessPayload(ctx context.Context, data []byte) Result {
	payload, err := DecodePayload(data)
	if err != nil {
		logger.WithTrace(ctx, p.logger).Warn("Invalid notification payload", zap.Error(err))
		p.observer.ObserveFailure(newFailure(StagePayload, err))
		return p.finish(Result{Outcome: OutcomeInvalidPayload, Err: err})
	}
	return p.Process(ctx, payload.HistoryID)
}

// Process runs one cursor through every stage. Stage errors end up in the
// returned Result; Process itself never fails.
func (p *Pipeline) Process(ctx context.Context, cursor Cursor) Result {
	log := logger.WithTrace(ctx, p.logger).With(zap.Stringer("cursor", cursor))

	start := time.Now()
	res, err := p.resolver.Resolve(ctx, cursor)
	if err != nil {
		metrics.RecordStageLatency(string(StageResolve), "error", time.Since(start))
		rec := newFailure(StageResolve, err)
		rec.Cursor = cursor
		p.observer.ObserveFailure(rec)
		return p.finish(Result{Cursor: cursor, Outcome: OutcomeResolveFailed, Err: err})
	}
	metrics.RecordStageLatency(string(StageResolve), "ok", time.Since(start))

	if res.NoChange() {
		log.Info("No added message for notification")
		return p.finish(Result{Cursor: cursor, Outcome: OutcomeNoChange})
	}

	log = log.With(zap.String("message_id", res.MessageID))

	start = time.Now()
	msg, err := p.decoder.Decode(ctx, res.MessageID)
	if err != nil {
		metrics.RecordStageLatency(string(StageDecode), "error", time.Since(start))
		rec := newFailure(StageDecode, err)
		rec.Cursor = cursor
		rec.MessageID = res.MessageID
		p.observer.ObserveFailure(rec)
		return p.finish(Result{Cursor: cursor, MessageID: res.MessageID, Outcome: OutcomeDecodeFailed, Err: err})
	}
	metrics.RecordStageLatency(string(StageDecode), "ok", time.Since(start))

	if p.deduper != nil && !p.deduper.AcquireOnce(ctx, dedupHandler, res.MessageID) {
		log.Info("Message already delivered, skipping")
		return p.finish(Result{Cursor: cursor, MessageID: res.MessageID, Outcome: OutcomeDuplicate})
	}

	text := p.formatter.Format(msg)
	if !p.sink.Deliver(ctx, text) {
		log.Warn("Notification dropped by sink")
		// a redelivery or replay may still send it
		if p.deduper != nil {
			p.deduper.Release(ctx, dedupHandler, res.MessageID)
		}
		return p.finish(Result{Cursor: cursor, MessageID: res.MessageID, Outcome: OutcomeDeliveryDropped})
	}

	log.Info("Notification delivered", zap.String("subject", msg.Subject))
	return p.finish(Result{Cursor: cursor, MessageID: res.MessageID, Outcome: OutcomeDelivered})
}

func (p *Pipeline) finish(r Result) Result {
	metrics.IncrementOutcome(string(r.Outcome))
	return r
}
