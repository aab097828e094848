package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockLister struct{ mock.Mock }

func (m *mockLister) ListHistory(ctx context.Context, start Cursor) ([]HistoryEvent, error) {
	args := m.Called(ctx, start)
	events, _ := args.Get(0).([]HistoryEvent)
	return events, args.Error(1)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchMessage(ctx context.Context, id string) (RawMessage, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(RawMessage), args.Error(1)
}

type mockSubscription struct{ mock.Mock }

func (m *mockSubscription) Pull(ctx context.Context, maxMessages int64) ([]Notification, error) {
	args := m.Called(ctx, maxMessages)
	notes, _ := args.Get(0).([]Notification)
	return notes, args.Error(1)
}

func (m *mockSubscription) Acknowledge(ctx context.Context, ackIDs []string) error {
	return m.Called(ctx, ackIDs).Error(0)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type mockDeadLetters struct{ mock.Mock }

func (m *mockDeadLetters) DeadLetter(ctx context.Context, dl DeadLetter) error {
	return m.Called(ctx, dl).Error(0)
}

type mockAttempts struct{ mock.Mock }

func (m *mockAttempts) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAttempts) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// memDeduper remembers ids in memory.
type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	key := handler + ":" + id
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, handler, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, handler+":"+id)
}

// recordingSink keeps delivered texts.
type recordingSink struct {
	texts []string
	fail  bool
}

func (s *recordingSink) Deliver(_ context.Context, text string) bool {
	if s.fail {
		return false
	}
	s.texts = append(s.texts, text)
	return true
}

type recordingObserver struct {
	records []FailureRecord
}

func (o *recordingObserver) ObserveFailure(rec FailureRecord) {
	o.records = append(o.records, rec)
}

func encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func payload(c Cursor) []byte {
	return []byte(fmt.Sprintf(`{"emailAddress":"me@example.com","historyId":%d}`, c))
}

func plainMessage(id, from, subject, body string) RawMessage {
	return RawMessage{
		ID: id,
		Headers: []Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: from},
		},
		Parts: []BodyPart{{MimeType: "text/plain", Data: encode(body)}},
	}
}

func newTestPipeline(lister HistoryLister, fetcher MessageFetcher, sink Sink, deduper Deduper, observer FailureObserver, logger *zap.Logger) *Pipeline {
	return NewPipeline(
		NewResolver(lister, logger),
		NewDecoder(fetcher, logger),
		NewFormatter(DefaultBodyLimit),
		sink,
		deduper,
		observer,
		logger,
	)
}
