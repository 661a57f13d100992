package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/lojf/habits/internal/logger"
	"github.com/lojf/habits/internal/models"
	"github.com/lojf/habits/internal/services"
)

// Linker binds and unbinds Telegram chats to accounts.
type Linker interface {
	RedeemLinkCode(ctx context.Context, code string, chatID int64) (*models.User, error)
	UnlinkChat(ctx context.Context, chatID int64) (bool, error)
}

const helpText = "Hi! I send reminders for your habits.\n\n" +
	"Open your profile on the website, create a Telegram link code and send it here:\n" +
	"<code>/link 123456</code>\n\n" +
	"/stop turns reminders off for this chat."

// Dispatcher answers the bot commands that arrive through the webhook.
type Dispatcher struct {
	c     Sender
	users Linker
}

func NewDispatcher(c Sender, users Linker) *Dispatcher {
	return &Dispatcher{c: c, users: users}
}

func (d *Dispatcher) Handle(ctx context.Context, u *Update) {
	if u.Message == nil || u.Message.Chat == nil {
		return
	}
	chat := u.Message.Chat.ID
	cmd, arg := splitCommand(u.Message.Text)

	switch cmd {
	case "/start", "/link":
		if arg == "" {
			d.reply(ctx, chat, helpText)
			return
		}
		d.handleLinkCode(ctx, chat, arg)
	case "/stop", "/unlink":
		ok, err := d.users.UnlinkChat(ctx, chat)
		switch {
		case err != nil:
			logger.Error("unlink chat", "chat_id", chat, "err", err)
			d.reply(ctx, chat, "Something went wrong, please try again later.")
		case ok:
			d.reply(ctx, chat, "🔕 Reminders are off. Send a new link code to turn them back on.")
		default:
			d.reply(ctx, chat, "This chat is not linked to any account.")
		}
	default:
		d.reply(ctx, chat, helpText)
	}
}

func (d *Dispatcher) handleLinkCode(ctx context.Context, chat int64, code string) {
	u, err := d.users.RedeemLinkCode(ctx, code, chat)
	if errors.Is(err, services.ErrCodeInvalid) {
		d.reply(ctx, chat, "Code invalid or expired.")
		return
	}
	if err != nil {
		logger.Error("redeem link code", "chat_id", chat, "err", err)
		d.reply(ctx, chat, "Something went wrong, please try again later.")
		return
	}
	logger.Info("telegram linked", "user_id", u.ID, "chat_id", chat)
	d.reply(ctx, chat, fmt.Sprintf("✅ Linked to <b>%s</b>. Reminders for your habits will arrive here.", html.EscapeString(u.Email)))
}

func (d *Dispatcher) reply(ctx context.Context, chat int64, text string) {
	if err := d.c.SendMessage(ctx, chat, text); err != nil {
		logger.Warn("telegram reply failed", "chat_id", chat, "err", err)
	}
}

// splitCommand turns "/start@habits_bot 123456" into ("/start", "123456").
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, arg, _ := strings.Cut(text, " ")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(strings.TrimRight(cmd, ":")), strings.Trim(arg, " :")
}
