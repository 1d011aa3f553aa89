package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"CameraUpdates/internal/ports"
)

// MaxMessageRunes is the Bot API limit for one text message.
const MaxMessageRunes = 4096

var ErrMisconfigured = errors.New("telegram notifier misconfigured")

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts run summaries to a Telegram chat.
type Notifier struct {
	sender Sender
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wraps an existing sender.
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

// Dial authenticates the bot token and returns a notifier for chatID.
func Dial(botToken, chatID string) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, ErrMisconfigured
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	api, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewNotifier(api, id), nil
}

// PublishSummary sends text as a plain message, trimmed to the API limit.
func (n *Notifier) PublishSummary(ctx context.Context, text string) error {
	if n.sender == nil || n.chatID == 0 {
		return ErrMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, clip(text))
	msg.DisableWebPagePreview = true
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func clip(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageRunes {
		return text
	}
	return string(runes[:MaxMessageRunes-3]) + "..."
}
