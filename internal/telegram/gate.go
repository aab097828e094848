package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Verdict int

const (
	Rejected Verdict = iota
	Authorized
)

func (v Verdict) String() string {
	if v == Authorized {
		return "authorized"
	}
	return "rejected"
}

// Gate admits only the configured chat.
type Gate struct {
	allowed string
}

func NewGate(allowed string) Gate {
	return Gate{allowed: allowed}
}

func (g Gate) Check(identity string) Verdict {
	if g.allowed != "" && LooseEqual(identity, g.allowed) {
		return Authorized
	}
	return Rejected
}

// LooseEqual compares two identities after trimming. Integers compare by
// value, so "0123" equals "123"; anything else compares as text.
func LooseEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai == bi
	}
	return a == b
}

// ChatRequest is what the chat endpoint needs from an incoming update.
type ChatRequest struct {
	Authorized bool
	ChatID     int64
	Text       string
	Voice      bool
}

// ParseChatRequest decodes a webhook update and authorizes its chat
// against allowed. An update without a message or chat is never
// authorized. Only malformed JSON is an error.
func ParseChatRequest(raw []byte, allowed string) (ChatRequest, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return ChatRequest{}, fmt.Errorf("decode update: %w", err)
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return ChatRequest{}, nil
	}

	req := ChatRequest{
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
		Voice:  msg.Voice != nil,
	}
	req.Authorized = NewGate(allowed).Check(strconv.FormatInt(msg.Chat.ID, 10)) == Authorized
	return req, nil
}
