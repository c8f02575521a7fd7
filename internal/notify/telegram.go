package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramDispatcher posts the plain rendering of a message to a chat
type TelegramDispatcher struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	// channel is used instead of chatID for "@name" targets
	channel string
}

// NewTelegramDispatcher authenticates the bot and resolves the target chat.
// chat is a numeric chat id or an "@channel" name. An empty endpoint uses
// the public Bot API.
func NewTelegramDispatcher(token, chat, endpoint string) (*TelegramDispatcher, error) {
	if token == "" || chat == "" {
		return nil, fmt.Errorf("telegram token and chat are required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}

	d := &TelegramDispatcher{bot: bot}
	if strings.HasPrefix(chat, "@") {
		d.channel = chat
		return d, nil
	}

	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q", chat)
	}
	d.chatID = id
	return d, nil
}

func (t *TelegramDispatcher) Name() string { return "telegram" }

// AddressesRecipients is false: every message goes to the configured chat
func (t *TelegramDispatcher) AddressesRecipients() bool { return false }

// Send ignores ctx cancellation once the request is in flight; the bot
// library has no context support.
func (t *TelegramDispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, dispatchFailed(t.Name(), err)
	}

	var out tgbotapi.MessageConfig
	if t.channel != "" {
		out = tgbotapi.NewMessageToChannel(t.channel, msg.Text)
	} else {
		out = tgbotapi.NewMessage(t.chatID, msg.Text)
	}
	out.DisableWebPagePreview = true

	sent, err := t.bot.Send(out)
	if err != nil {
		return Receipt{}, dispatchFailed(t.Name(), err)
	}
	return Receipt{Provider: t.Name(), MessageID: strconv.Itoa(sent.MessageID)}, nil
}
