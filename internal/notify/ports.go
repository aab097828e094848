package notify

import "context"

// HistoryLister lists the change events recorded after start.
type HistoryLister interface {
	ListHistory(ctx context.Context, start Cursor) ([]HistoryEvent, error)
}

// MessageFetcher fetches one message with its full payload.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, id string) (RawMessage, error)
}

// Subscription is the pull side of the messaging transport.
type Subscription interface {
	Pull(ctx context.Context, maxMessages int64) ([]Notification, error)
	Acknowledge(ctx context.Context, ackIDs []string) error
}

// Sender sends one formatted text to the fixed chat recipient.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Sink delivers formatted notifications. Delivery is best-effort.
type Sink interface {
	Deliver(ctx context.Context, text string) bool
}

// Deduper reports whether id is seen for the first time by handler.
// Release forgets id so a later attempt can acquire it again.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

// AttemptCounter counts processing attempts per key.
type AttemptCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterSink stores notifications that could not be processed.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, dl DeadLetter) error
}
