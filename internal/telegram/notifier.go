package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hcissey0/fitpal-notify/internal/scheduler"
)

// Notifier delivers fired reminders as messages to one chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifier(bot *tgbotapi.BotAPI, chatID int64) *Notifier {
	return &Notifier{bot: bot, chatID: chatID}
}

// Deliver sends the title and body as one message. The bot API call does not
// take a context, so ctx only short-circuits an already expired attempt.
func (n *Notifier) Deliver(ctx context.Context, p scheduler.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := p.Title
	if p.Body != "" {
		text += "\n\n" + p.Body
	}
	_, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text))
	return err
}
