package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailhook/pkg/logger"
	"mailhook/pkg/metrics"
	"mailhook/pkg/trace"
	"mailhook/pkg/util"
)

const DefaultMaxMessages = 1

// PullerConfig tunes a Puller. DeadLetters is required by AckDeadLetter and
// AckOnSuccess; Attempts by AckOnSuccess.
type PullerConfig struct {
	MaxMessages int64
	AckPolicy   AckPolicy
	ErrorMode   ErrorMode
	MaxAttempts int64
	DeadLetters DeadLetterSink
	Attempts    AttemptCounter
	Observer    FailureObserver
}

// CycleReport summarizes one pull cycle.
type CycleReport struct {
	Pulled       int
	Acked        int
	DeadLettered int
	Results      []Result
}

// Puller pulls change notifications, runs them through the pipeline in
// delivery order and acknowledges them in one batch.
type Puller struct {
	sub      Subscription
	pipeline *Pipeline
	cfg      PullerConfig
	observer FailureObserver
	logger   *zap.Logger
}

func NewPuller(sub Subscription, pipeline *Pipeline, cfg PullerConfig, logger *zap.Logger) (*Puller, error) {
	if cfg.MaxMessages < 1 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.AckPolicy == "" {
		cfg.AckPolicy = AckDeadLetter
	}
	if cfg.ErrorMode == "" {
		cfg.ErrorMode = ContinueOnError
	}
	switch cfg.AckPolicy {
	case AckAll:
	case AckDeadLetter:
		if cfg.DeadLetters == nil {
			return nil, errors.New("ack policy dead_letter needs a dead-letter sink")
		}
	case AckOnSuccess:
		if cfg.DeadLetters == nil || cfg.Attempts == nil {
			return nil, errors.New("ack policy ack_on_success needs a dead-letter sink and an attempt counter")
		}
		if cfg.MaxAttempts < 1 {
			return nil, fmt.Errorf("max attempts must be at least 1, got %d", cfg.MaxAttempts)
		}
	default:
		return nil, fmt.Errorf("unknown ack policy %q", cfg.AckPolicy)
	}

	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Puller{
		sub:      sub,
		pipeline: pipeline,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}, nil
}

// Run calls PullOnce every interval until ctx is done. An interval of zero
// runs a single cycle and returns its error.
func (p *Puller) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("Starting subscription puller",
		zap.Duration("interval", interval),
		zap.Int64("max_messages", p.cfg.MaxMessages),
		zap.String("ack_policy", string(p.cfg.AckPolicy)),
		zap.String("error_mode", string(p.cfg.ErrorMode)),
	)

	if interval <= 0 {
		_, err := p.PullOnce(ctx)
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.PullOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Pull cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Subscription puller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PullOnce runs one pull cycle. In ContinueOnError mode it only fails when
// the pull or the acknowledge call fails.
func (p *Puller) PullOnce(ctx context.Context) (CycleReport, error) {
	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, p.logger)

	var report CycleReport
	notes, err := p.sub.Pull(ctx, p.cfg.MaxMessages)
	if err != nil {
		return report, fmt.Errorf("pull: %w", err)
	}
	report.Pulled = len(notes)
	metrics.AddPulled(len(notes))
	if len(notes) == 0 {
		log.Debug("No notifications pulled")
		return report, nil
	}

	var (
		ackIDs   []string
		batchErr error
	)
	for _, n := range notes {
		res := p.pipeline.ProcessPayload(ctx, n.Data)
		report.Results = append(report.Results, res)

		log.Info("Processed notification",
			zap.String("ack_id", n.AckID),
			zap.Stringer("cursor", res.Cursor),
			zap.String("outcome", string(res.Outcome)),
		)

		ack, deadLettered := p.settle(ctx, n, res)
		if ack {
			ackIDs = append(ackIDs, n.AckID)
		}
		if deadLettered {
			report.DeadLettered++
		}

		if res.Failed() && p.cfg.ErrorMode == FailFast {
			batchErr = fmt.Errorf("notification %s: %s: %w", n.AckID, res.Outcome, res.Err)
			break
		}
	}

	if len(ackIDs) > 0 {
		if err := p.sub.Acknowledge(ctx, ackIDs); err != nil {
			metrics.AddAcknowledged("error", len(ackIDs))
			p.observer.ObserveFailure(newFailure(StageAck, err))
			return report, errors.Join(batchErr, fmt.Errorf("acknowledge: %w", err))
		}
		metrics.AddAcknowledged("ok", len(ackIDs))
		report.Acked = len(ackIDs)
	}

	return report, batchErr
}

// settle applies the ack policy to one processed notification.
func (p *Puller) settle(ctx context.Context, n Notification, res Result) (ack, deadLettered bool) {
	if !res.Failed() {
		if p.cfg.AckPolicy == AckOnSuccess && res.Cursor != 0 {
			if err := p.cfg.Attempts.Reset(ctx, retryKey(res.Cursor)); err != nil {
				p.logger.Debug("Failed to reset attempt counter", zap.Error(err))
			}
		}
		return true, false
	}

	switch p.cfg.AckPolicy {
	case AckAll:
		return true, false
	case AckDeadLetter:
		ok := p.deadLetter(ctx, n, res, 1)
		return ok, ok
	}

	// AckOnSuccess. A bad payload never gets better on redelivery.
	if res.Outcome == OutcomeInvalidPayload {
		ok := p.deadLetter(ctx, n, res, 1)
		return ok, ok
	}

	key := retryKey(res.Cursor)
	attempts, err := p.cfg.Attempts.IncrementAndGet(ctx, key)
	if err != nil {
		// Without a count the notification is left for redelivery.
		p.logger.Warn("Failed to count attempt",
			zap.String("key", key),
			zap.Error(err),
		)
		return false, false
	}
	if attempts < p.cfg.MaxAttempts {
		p.logger.Info("Leaving notification for redelivery",
			zap.Stringer("cursor", res.Cursor),
			zap.Int64("attempt", attempts),
			zap.Int64("max_attempts", p.cfg.MaxAttempts),
		)
		return false, false
	}

	if !p.deadLetter(ctx, n, res, attempts) {
		return false, false
	}
	if err := p.cfg.Attempts.Reset(ctx, key); err != nil {
		p.logger.Debug("Failed to reset attempt counter", zap.Error(err))
	}
	return true, true
}

func (p *Puller) deadLetter(ctx context.Context, n Notification, res Result, attempts int64) bool {
	dl := DeadLetter{
		AckID:          n.AckID,
		TransportMsgID: n.MessageID,
		Cursor:         res.Cursor,
		MessageID:      res.MessageID,
		Outcome:        res.Outcome,
		Payload:        n.Data,
		Attempts:       attempts,
		FailedAt:       time.Now().UTC(),
	}
	if res.Err != nil {
		dl.Error = res.Err.Error()
	}

	if err := p.cfg.DeadLetters.DeadLetter(ctx, dl); err != nil {
		rec := newFailure(StageDeadLetter, err)
		rec.Cursor = res.Cursor
		rec.MessageID = res.MessageID
		rec.AckID = n.AckID
		p.observer.ObserveFailure(rec)
		return false
	}
	return true
}

func retryKey(c Cursor) string {
	return util.FormatRetryKey(dedupHandler, c.String())
}
