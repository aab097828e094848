package pubsub

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	pubsubapi "google.golang.org/api/pubsub/v1"

	"mailhook/internal/notify"
)

// Subscriber pulls from and acknowledges on one subscription over the
// Pub/Sub REST API.
type Subscriber struct {
	srv          *pubsubapi.Service
	subscription string
	pullTimeout  time.Duration
	logger       *zap.Logger
}

// NewSubscriber creates a subscriber for the full subscription name
// projects/<project>/subscriptions/<name>.
func NewSubscriber(ctx context.Context, subscription string, logger *zap.Logger, opts ...option.ClientOption) (*Subscriber, error) {
	srv, err := pubsubapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Pub/Sub service: %w", err)
	}
	return &Subscriber{srv: srv, subscription: subscription, logger: logger}, nil
}

// WithPullTimeout bounds each Pull call. Zero leaves the caller's deadline.
func (s *Subscriber) WithPullTimeout(d time.Duration) *Subscriber {
	s.pullTimeout = d
	return s
}

// Pull fetches up to maxMessages notifications in delivery order.
func (s *Subscriber) Pull(ctx context.Context, maxMessages int64) ([]notify.Notification, error) {
	if s.pullTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pullTimeout)
		defer cancel()
	}
	resp, err := s.srv.Projects.Subscriptions.
		Pull(s.subscription, &pubsubapi.PullRequest{MaxMessages: maxMessages}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", s.subscription, err)
	}

	notes := make([]notify.Notification, 0, len(resp.ReceivedMessages))
	for _, rm := range resp.ReceivedMessages {
		if rm == nil || rm.AckId == "" {
			continue
		}
		// Without a message the empty data becomes an invalid payload and
		// the ack policy still settles the ack id.
		n := notify.Notification{AckID: rm.AckId}
		if rm.Message != nil {
			n.MessageID = rm.Message.MessageId
			n.Data = s.decodeData(rm.Message)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Acknowledge acknowledges ackIDs in one call.
func (s *Subscriber) Acknowledge(ctx context.Context, ackIDs []string) error {
	if len(ackIDs) == 0 {
		return nil
	}
	_, err := s.srv.Projects.Subscriptions.
		Acknowledge(s.subscription, &pubsubapi.AcknowledgeRequest{AckIds: ackIDs}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("acknowledge %d messages on %s: %w", len(ackIDs), s.subscription, err)
	}
	return nil
}

// decodeData returns the payload bytes. Data that is not base64 is passed
// through unchanged so the pipeline reports it as an invalid payload.
func (s *Subscriber) decodeData(m *pubsubapi.PubsubMessage) []byte {
	b, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		s.logger.Warn("Pub/Sub message data is not base64",
			zap.String("message_id", m.MessageId),
			zap.Error(err),
		)
		return []byte(m.Data)
	}
	return b
}
