package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/handlers"
	"github.com/lojf/habits/internal/logger"
)

// Router wires the HTTP API. gatherer backs /metrics; nil leaves it out.
func Router(h *handlers.Handlers, tokens *auth.Tokens, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/healthz", handlers.Health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Post("/tg/webhook", h.TelegramWebhook)

	r.Route("/api", func(api chi.Router) {
		api.Post("/users/register", h.Register)
		api.Post("/users/login", h.Login)

		api.Group(func(p chi.Router) {
			p.Use(tokens.Middleware)

			p.Get("/users/profile", h.Profile)
			p.Put("/users/profile", h.UpdateProfile)
			p.Patch("/users/profile", h.UpdateProfile)
			p.Delete("/users/profile", h.DeleteProfile)
			p.Post("/users/profile/telegram-link", h.TelegramLink)
			p.Delete("/users/profile/telegram-link", h.TelegramUnlink)
			p.Get("/users/profile/telegram-link.png", h.TelegramLinkQR)

			p.Get("/habits/my-habits", h.ListMyHabits)
			p.Post("/habits/my-habits", h.CreateHabit)
			p.Get("/habits/my-habits/{id}", h.GetMyHabit)
			p.Put("/habits/my-habits/{id}", h.UpdateHabit)
			p.Patch("/habits/my-habits/{id}", h.UpdateHabit)
			p.Delete("/habits/my-habits/{id}", h.DeleteHabit)

			// read-only feed
			p.Get("/habits/public", h.ListPublicHabits)
			p.Get("/habits/public/{id}", h.GetPublicHabit)
		})
	})

	return r
}
