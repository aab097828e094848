package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Resolver turns a cursor into the id of the message added after it.
type Resolver struct {
	lister HistoryLister
	logger *zap.Logger
}

func NewResolver(lister HistoryLister, logger *zap.Logger) *Resolver {
	return &Resolver{lister: lister, logger: logger}
}

// Resolve returns the first added message recorded after cursor. Other
// event kinds are ignored and later added messages are dropped.
func (r *Resolver) Resolve(ctx context.Context, cursor Cursor) (Resolution, error) {
	events, err := r.lister.ListHistory(ctx, cursor)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: cursor %s: %w", ErrHistoryLookupFailed, cursor, err)
	}

	id := FirstAdded(events)
	if id == "" {
		r.logger.Debug("No added message in history",
			zap.Stringer("cursor", cursor),
			zap.Int("events", len(events)),
		)
	}
	return Resolution{MessageID: id}, nil
}

// FirstAdded returns the message id of the first messageAdded event, or ""
// when there is none. Events without a message id are skipped.
func FirstAdded(events []HistoryEvent) string {
	for _, ev := range events {
		if ev.Kind == EventMessageAdded && ev.MessageID != "" {
			return ev.MessageID
		}
	}
	return ""
}
