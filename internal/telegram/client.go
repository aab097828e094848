package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Client sends messages through the Bot API. The notification recipient is
// fixed at construction.
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID string
	logger *zap.Logger
}

// NewClient authenticates the bot with getMe. An empty endpoint uses the
// public Bot API; a nil httpClient uses http.DefaultClient.
func NewClient(token, chatID, endpoint string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &Client{bot: bot, chatID: strings.TrimSpace(chatID), logger: logger}, nil
}

// Send delivers notification markup to the configured chat as MarkdownV2.
func (c *Client) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := c.newMessage(ToMarkdownV2(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send to chat %s: %w", c.chatID, err)
	}
	return nil
}

// Reply sends plain text to chatID.
func (c *Client) Reply(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("reply to chat %d: %w", chatID, err)
	}
	return nil
}

// newMessage addresses numeric chat ids directly and anything else as a
// channel username such as @mychannel.
func (c *Client) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(c.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(c.chatID, text)
}
