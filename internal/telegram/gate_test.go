package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateCheck(t *testing.T) {
	tests := []struct {
		allowed  string
		identity string
		want     Verdict
	}{
		{allowed: "123", identity: "999", want: Rejected},
		{allowed: "123", identity: "123", want: Authorized},
		{allowed: "123", identity: " 123 ", want: Authorized},
		{allowed: "123", identity: "0123", want: Authorized},
		{allowed: "-100123", identity: "-100123", want: Authorized},
		{allowed: "@channel", identity: "@channel", want: Authorized},
		{allowed: "@channel", identity: "@other", want: Rejected},
		{allowed: "123", identity: "", want: Rejected},
		{allowed: "", identity: "", want: Rejected},
	}
	for _, tt := range tests {
		t.Run(tt.allowed+"/"+tt.identity, func(t *testing.T) {
			assert.Equal(t, tt.want, NewGate(tt.allowed).Check(tt.identity))
		})
	}
}

func TestParseChatRequest(t *testing.T) {
	t.Run("authorized text", func(t *testing.T) {
		req, err := ParseChatRequest([]byte(`{"update_id":1,"message":{"message_id":5,"date":0,"chat":{"id":123,"type":"private"},"text":"ping"}}`), "123")
		require.NoError(t, err)
		assert.Equal(t, ChatRequest{Authorized: true, ChatID: 123, Text: "ping"}, req)
	})

	t.Run("unauthorized", func(t *testing.T) {
		req, err := ParseChatRequest([]byte(`{"update_id":1,"message":{"message_id":5,"date":0,"chat":{"id":999,"type":"private"},"text":"ping"}}`), "123")
		require.NoError(t, err)
		assert.False(t, req.Authorized)
		assert.Equal(t, int64(999), req.ChatID)
	})

	t.Run("voice", func(t *testing.T) {
		req, err := ParseChatRequest([]byte(`{"update_id":1,"message":{"message_id":5,"date":0,"chat":{"id":123,"type":"private"},"voice":{"file_id":"f","file_unique_id":"u","duration":3}}}`), "123")
		require.NoError(t, err)
		assert.True(t, req.Authorized)
		assert.True(t, req.Voice)
	})

	t.Run("no message", func(t *testing.T) {
		req, err := ParseChatRequest([]byte(`{"update_id":1}`), "123")
		require.NoError(t, err)
		assert.False(t, req.Authorized)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseChatRequest([]byte(`{not json`), "123")
		assert.Error(t, err)
	})
}
