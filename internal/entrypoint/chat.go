package entrypoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailhook/internal/telegram"
	"mailhook/pkg/logger"
)

const voiceNotSupported = "Voice requests are not supported."

// Responder produces the answer to an authorized chat message.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// EchoResponder greets the sender with their own text.
type EchoResponder struct{}

func (EchoResponder) Respond(_ context.Context, prompt string) (string, error) {
	return "Hello, " + prompt, nil
}

type replier interface {
	Reply(ctx context.Context, chatID int64, text string) error
}

// ChatHandler answers messages sent to the bot by the configured chat.
type ChatHandler struct {
	allowed   string
	responder Responder
	replier   replier
	logger    *zap.Logger
}

func NewChatHandler(allowed string, responder Responder, replier replier, logger *zap.Logger) *ChatHandler {
	if responder == nil {
		responder = EchoResponder{}
	}
	return &ChatHandler{allowed: allowed, responder: responder, replier: replier, logger: logger}
}

func (h *ChatHandler) Handle(ctx context.Context, req Request) Response {
	log := logger.WithTrace(ctx, h.logger)
	if req.Body == "" {
		log.Warn("No body received in the request")
		return BadRequest(msgNoBody)
	}

	chat, err := telegram.ParseChatRequest([]byte(req.Body), h.allowed)
	if err != nil {
		log.Warn("Failed to parse request body", zap.Error(err))
		return BadRequest(msgInvalidJSON)
	}
	if !chat.Authorized {
		log.Warn("Chat is not authorized", zap.Int64("chat_id", chat.ChatID))
		return Forbidden()
	}

	var answer string
	switch {
	case chat.Voice:
		answer = voiceNotSupported
	case chat.Text == "":
		log.Info("Ignoring message without text", zap.Int64("chat_id", chat.ChatID))
		return OK()
	default:
		answer, err = h.responder.Respond(ctx, chat.Text)
		if err != nil {
			log.Error("Responder failed", zap.Error(err))
			return InternalError(fmt.Errorf("respond: %w", err))
		}
	}

	if err := h.replier.Reply(ctx, chat.ChatID, answer); err != nil {
		log.Error("Failed to send reply", zap.Int64("chat_id", chat.ChatID), zap.Error(err))
		return InternalError(err)
	}
	return OK()
}
