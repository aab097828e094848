package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"mailhook/pkg/circuitbreaker"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	{
		var v map[string]any
		syntaxErr = json.Unmarshal([]byte("{"), &v)
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", fmt.Errorf("decode: %w", syntaxErr), false, "json_decode_error"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"deadline", fmt.Errorf("pull: %w", context.DeadlineExceeded), true, "timeout"},
		{"breaker open", circuitbreaker.ErrCircuitBreakerOpen, true, "circuit_open"},
		{"gmail 429", &googleapi.Error{Code: 429}, true, "rate_limited"},
		{"gmail 503", fmt.Errorf("history: %w", &googleapi.Error{Code: 503}), true, "server_error"},
		{"gmail 404", &googleapi.Error{Code: 404}, false, "not_found"},
		{"gmail 401", &googleapi.Error{Code: 401}, false, "auth_error"},
		{"gmail 400", &googleapi.Error{Code: 400}, false, "client_error"},
		{"telegram 429", &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}, true, "rate_limited"},
		{"telegram 400", &tgbotapi.Error{Code: 400, Message: "Bad Request"}, false, "client_error"},
		{"url timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, true, "network_timeout"},
		{"unknown", errors.New("strange"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}
