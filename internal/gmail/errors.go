package gmail

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
)

var (
	// ErrHistoryIDExpired indicates the start history id is too old or
	// unknown. Gmail answers 404 in that case.
	ErrHistoryIDExpired = errors.New("gmail: history id expired")

	// ErrUnauthorized indicates invalid or revoked credentials.
	ErrUnauthorized = errors.New("gmail: unauthorised")

	// ErrRateLimited indicates the per-user quota was exceeded.
	ErrRateLimited = errors.New("gmail: rate limit exceeded")
)

// IsHistoryIDExpired reports whether err means the start history id is no
// longer valid.
func IsHistoryIDExpired(err error) bool {
	if errors.Is(err, ErrHistoryIDExpired) {
		return true
	}
	return statusCode(err) == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	return statusCode(err) == http.StatusUnauthorized
}

func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return statusCode(err) == http.StatusTooManyRequests
}

// wrapHistoryError tags history.list errors. The googleapi error stays in
// the chain.
func wrapHistoryError(err error) error {
	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrHistoryIDExpired, err)
	}
	return wrapError(err)
}

func wrapError(err error) error {
	switch statusCode(err) {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// retryAfter returns the Retry-After seconds of a 429, or 0.
func retryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, err := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if err != nil {
		return 0
	}
	return secs
}
