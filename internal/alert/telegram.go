package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/monitor"
)

// maxMessageLen stays under Telegram's 4096 limit.
const maxMessageLen = 4000

// TelegramAlerter posts alerts to one chat through the Bot API.
type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Bot API with token. endpoint may be empty
// for the public API; otherwise it is a format string like
// tgbotapi.APIEndpoint.
func NewTelegram(token string, chatID int64, endpoint string) (*TelegramAlerter, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	appLog.Info("telegram alerts enabled", "bot", bot.Self.UserName, "chat_id", chatID)
	return &TelegramAlerter{bot: bot, chatID: chatID}, nil
}

func (t *TelegramAlerter) Alert(ctx context.Context, keys []string, changes map[string]model.ChangeRecord) error {
	if len(keys) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.send(Message(keys, changes)); err != nil {
		return err
	}
	appLog.Debug("telegram alert sent", "keys", len(keys))
	return nil
}

func (t *TelegramAlerter) AlertPages(ctx context.Context, changed []monitor.Check) error {
	if len(changed) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.send(PageMessage(changed)); err != nil {
		return err
	}
	appLog.Debug("telegram page alert sent", "pages", len(changed))
	return nil
}

func (t *TelegramAlerter) send(text string) error {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}
