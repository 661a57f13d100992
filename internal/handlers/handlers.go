// Package handlers implements the JSON API.
package handlers

import (
	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/bot"
	"github.com/lojf/habits/internal/metrics"
	"github.com/lojf/habits/internal/services"
)

type Deps struct {
	Users      *services.Users
	Habits     *services.Habits
	Tokens     *auth.Tokens
	Dispatcher *bot.Dispatcher
	Metrics    *metrics.Metrics

	BotUsername   string
	WebhookSecret string
}

type Handlers struct {
	users  *services.Users
	habits *services.Habits
	tokens *auth.Tokens
	bot    *bot.Dispatcher
	m      *metrics.Metrics

	botUsername   string
	webhookSecret string
}

func New(d Deps) *Handlers {
	m := d.Metrics
	if m == nil {
		m = metrics.Discard()
	}
	return &Handlers{
		users:         d.Users,
		habits:        d.Habits,
		tokens:        d.Tokens,
		bot:           d.Dispatcher,
		m:             m,
		botUsername:   d.BotUsername,
		webhookSecret: d.WebhookSecret,
	}
}
