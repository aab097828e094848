package gmail

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailhook/internal/notify"
	"mailhook/pkg/circuitbreaker"
	"mailhook/pkg/util"
)

var historyTypes = []string{
	string(notify.EventMessageAdded),
	string(notify.EventMessageDeleted),
	string(notify.EventLabelAdded),
	string(notify.EventLabelRemoved),
}

// Client adapts the Gmail API to the notify ports. Every call waits on the
// rate limiter and runs inside the circuit breaker; nothing is retried.
type Client struct {
	srv     *gmailapi.Service
	user    string
	limiter *RateLimiter
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

type Options struct {
	User              string
	RequestsPerSecond float64
	Burst             int
	Breaker           circuitbreaker.Config
}

// NewClient creates a client. Pass option.WithHTTPClient with an OAuth
// client from NewHTTPClient; tests also pass option.WithEndpoint.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger, clientOpts ...option.ClientOption) (*Client, error) {
	srv, err := gmailapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	if opts.User == "" {
		opts.User = "me"
	}

	bcfg := opts.Breaker
	if bcfg.FailureThreshold == 0 {
		bcfg = circuitbreaker.DefaultConfig()
	}
	bcfg.IsFailure = func(err error) bool {
		retryable, _ := util.IsRetryableError(err)
		return retryable
	}
	bcfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("Gmail circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Client{
		srv:     srv,
		user:    opts.User,
		limiter: NewRateLimiter(opts.RequestsPerSecond, opts.Burst),
		breaker: circuitbreaker.NewCircuitBreaker(bcfg),
		logger:  logger,
	}, nil
}

func (c *Client) do(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.breaker.Execute(fn)
	if IsRateLimited(err) {
		c.limiter.RecordRateLimitError(retryAfter(err))
	}
	return err
}

// ListHistory returns the history events after start, page by page, in the
// order Gmail reports them.
func (c *Client) ListHistory(ctx context.Context, start notify.Cursor) ([]notify.HistoryEvent, error) {
	var events []notify.HistoryEvent
	err := c.do(ctx, func() error {
		events = events[:0]
		return c.srv.Users.History.List(c.user).
			StartHistoryId(uint64(start)).
			HistoryTypes(historyTypes...).
			Pages(ctx, func(resp *gmailapi.ListHistoryResponse) error {
				events = append(events, convertHistory(resp.History)...)
				return nil
			})
	})
	if err != nil {
		return nil, wrapHistoryError(err)
	}
	return events, nil
}

// FetchMessage gets one message in full format.
func (c *Client) FetchMessage(ctx context.Context, id string) (notify.RawMessage, error) {
	var msg *gmailapi.Message
	err := c.do(ctx, func() error {
		var err error
		msg, err = c.srv.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return notify.RawMessage{}, wrapError(err)
	}
	return convertMessage(msg), nil
}

// WatchResult is the mailbox position and expiry of a watch registration.
type WatchResult struct {
	HistoryID  notify.Cursor
	Expiration time.Time
}

// Watch registers (or renews) push notifications for labelIDs to topic.
func (c *Client) Watch(ctx context.Context, topic string, labelIDs []string) (WatchResult, error) {
	if topic == "" {
		return WatchResult{}, errors.New("watch topic is required")
	}
	req := &gmailapi.WatchRequest{
		TopicName:         topic,
		LabelIds:          labelIDs,
		LabelFilterAction: "include",
	}

	var resp *gmailapi.WatchResponse
	err := c.do(ctx, func() error {
		var err error
		resp, err = c.srv.Users.Watch(c.user, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return WatchResult{}, fmt.Errorf("watch: %w", wrapError(err))
	}
	return WatchResult{
		HistoryID:  notify.Cursor(resp.HistoryId),
		Expiration: time.UnixMilli(resp.Expiration).UTC(),
	}, nil
}

// StopWatch stops push notifications for the mailbox.
func (c *Client) StopWatch(ctx context.Context) error {
	err := c.do(ctx, func() error {
		return c.srv.Users.Stop(c.user).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("stop watch: %w", wrapError(err))
	}
	return nil
}

// convertHistory flattens history records. Within a record, added messages
// come first, then deletions and label changes.
func convertHistory(records []*gmailapi.History) []notify.HistoryEvent {
	var events []notify.HistoryEvent
	for _, h := range records {
		if h == nil {
			continue
		}
		for _, m := range h.MessagesAdded {
			events = append(events, notify.HistoryEvent{Kind: notify.EventMessageAdded, MessageID: messageID(m.Message)})
		}
		for _, m := range h.MessagesDeleted {
			events = append(events, notify.HistoryEvent{Kind: notify.EventMessageDeleted, MessageID: messageID(m.Message)})
		}
		for _, m := range h.LabelsAdded {
			events = append(events, notify.HistoryEvent{Kind: notify.EventLabelAdded, MessageID: messageID(m.Message)})
		}
		for _, m := range h.LabelsRemoved {
			events = append(events, notify.HistoryEvent{Kind: notify.EventLabelRemoved, MessageID: messageID(m.Message)})
		}
	}
	return events
}

func messageID(m *gmailapi.Message) string {
	if m == nil {
		return ""
	}
	return m.Id
}

func convertMessage(msg *gmailapi.Message) notify.RawMessage {
	raw := notify.RawMessage{ID: msg.Id}
	if msg.Payload == nil {
		return raw
	}

	for _, h := range msg.Payload.Headers {
		raw.Headers = append(raw.Headers, notify.Header{Name: h.Name, Value: h.Value})
	}
	for _, p := range msg.Payload.Parts {
		part := notify.BodyPart{MimeType: p.MimeType, Charset: partCharset(p.Headers)}
		if p.Body != nil {
			part.Data = p.Body.Data
		}
		raw.Parts = append(raw.Parts, part)
	}
	if msg.Payload.Body != nil {
		raw.Body = &notify.BodyPart{
			MimeType: msg.Payload.MimeType,
			Charset:  partCharset(msg.Payload.Headers),
			Data:     msg.Payload.Body.Data,
		}
	}
	return raw
}

// partCharset returns the charset parameter of the Content-Type header.
func partCharset(headers []*gmailapi.MessagePartHeader) string {
	for _, h := range headers {
		if h == nil || !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(h.Value)
		if err != nil {
			return ""
		}
		return params["charset"]
	}
	return ""
}
