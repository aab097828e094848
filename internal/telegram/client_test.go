package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"relay","username":"relay_bot"}}`

// fakeBotAPI records sendMessage parameters.
type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []url.Values
	response string
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(getMeResponse))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			f.mu.Lock()
			f.sent = append(f.sent, r.PostForm)
			f.mu.Unlock()
			_, _ = w.Write([]byte(f.response))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, fake *fakeBotAPI, chatID string) *Client {
	t.Helper()
	if fake.response == "" {
		fake.response = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":123,"type":"private"}}}`
	}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient("token", chatID, srv.URL+"/bot%s/%s", srv.Client(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestSend(t *testing.T) {
	fake := &fakeBotAPI{}
	c := newTestClient(t, fake, "123")

	require.NoError(t, c.Send(context.Background(), "**New email:**\n_From:_ a@b.com"))

	require.Len(t, fake.sent, 1)
	assert.Equal(t, "123", fake.sent[0].Get("chat_id"))
	assert.Equal(t, tgbotapi.ModeMarkdownV2, fake.sent[0].Get("parse_mode"))
	assert.Equal(t, "*New email:*\n_From:_ a@b\\.com", fake.sent[0].Get("text"))
}

func TestSend_ChannelUsername(t *testing.T) {
	fake := &fakeBotAPI{}
	c := newTestClient(t, fake, "@mailroom")

	require.NoError(t, c.Send(context.Background(), "hi"))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "@mailroom", fake.sent[0].Get("chat_id"))
}

func TestSend_APIError(t *testing.T) {
	fake := &fakeBotAPI{response: `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`}
	c := newTestClient(t, fake, "123")

	err := c.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSend_CanceledContext(t *testing.T) {
	fake := &fakeBotAPI{}
	c := newTestClient(t, fake, "123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Send(ctx, "hi"), context.Canceled)
	assert.Empty(t, fake.sent)
}

func TestReply(t *testing.T) {
	fake := &fakeBotAPI{}
	c := newTestClient(t, fake, "123")

	require.NoError(t, c.Reply(context.Background(), 456, "Hello, ping"))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "456", fake.sent[0].Get("chat_id"))
	assert.Equal(t, "Hello, ping", fake.sent[0].Get("text"))
	assert.Empty(t, fake.sent[0].Get("parse_mode"))
}

func TestNewClient_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", "123", srv.URL+"/bot%s/%s", srv.Client(), zap.NewNop())
	assert.Error(t, err)
}
