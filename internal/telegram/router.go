package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/domain"
	"github.com/hcissey0/fitpal-notify/internal/reminder"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
)

// Controller is what the bot commands act on. reminder.Service implements it.
type Controller interface {
	Count() int
	Pending() []scheduler.Pending
	CancelAll()
	Refresh(ctx context.Context) (reminder.Summary, error)
	CurrentMeal(ctx context.Context, at *domain.TimeOfDay) (reminder.CurrentMeal, error)
}

// Router wires Telegram updates to command handlers. Only the configured
// chat is served; everything else is ignored.
type Router struct {
	bot    *tgbotapi.BotAPI
	log    *zap.Logger
	ctrl   Controller
	chatID int64
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, ctrl Controller, chatID int64) *Router {
	return &Router{bot: bot, log: log, ctrl: ctrl, chatID: chatID}
}

// SetCommands publishes the command menu.
func (r *Router) SetCommands() error {
	_, err := r.bot.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "status", Description: "Pending reminders"},
		tgbotapi.BotCommand{Command: "meal", Description: "Current meal"},
		tgbotapi.BotCommand{Command: "refresh", Description: "Rebuild reminders from your plan"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Cancel all pending reminders"},
	))
	return err
}

// HandleUpdate routes a single update to the matching handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	chatID := msg.Chat.ID
	if chatID != r.chatID {
		r.log.Debug("ignoring message from unknown chat", zap.Int64("chatID", chatID))
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		r.sendText(chatID, startText)
	case strings.HasPrefix(text, "/status"):
		r.handleStatus(chatID)
	case strings.HasPrefix(text, "/meal"):
		r.handleMeal(ctx, chatID, strings.TrimSpace(strings.TrimPrefix(text, "/meal")))
	case strings.HasPrefix(text, "/refresh"):
		r.handleRefresh(ctx, chatID)
	case strings.HasPrefix(text, "/cancel"):
		r.handleCancel(chatID)
	default:
		// Free-form text is not a command; ignore it.
	}
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("telegram send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}
