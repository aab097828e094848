package notify

import "errors"

var (
	ErrHistoryLookupFailed = errors.New("history lookup failed")
	ErrFetchFailed         = errors.New("message fetch failed")
	ErrInvalidPayload      = errors.New("invalid notification payload")
)
