package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lojf/habits/internal/auth"
	"github.com/lojf/habits/internal/bot"
	"github.com/lojf/habits/internal/config"
	"github.com/lojf/habits/internal/db"
	"github.com/lojf/habits/internal/handlers"
	"github.com/lojf/habits/internal/jobs"
	"github.com/lojf/habits/internal/logger"
	"github.com/lojf/habits/internal/metrics"
	"github.com/lojf/habits/internal/services"
	"github.com/lojf/habits/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "err", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Fatal("logger init", "err", err)
	}

	conn, err := db.Open(cfg.DatabasePath, db.Options{})
	if err != nil {
		logger.Fatal("db init", "path", cfg.DatabasePath, "err", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	users := services.NewUsers(conn)
	habits := services.NewHabits(conn)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	tg := bot.NewClient(cfg.TelegramToken)
	if !tg.Configured() {
		logger.Warn("TG_BOT_TOKEN is not set; reminders and bot replies will not be delivered")
	}

	runner := jobs.NewRunner(cfg.Location)
	if cfg.RemindersEnabled {
		sched := bot.NewScheduler(conn, runner, bot.NewNotifier(conn, tg, m), cfg.Location, cfg.Horizon, m)
		if err := runner.Every(cfg.SweepSpec, "reminder-sweep", sched.Run); err != nil {
			logger.Fatal("reminder sweep schedule", "spec", cfg.SweepSpec, "err", err)
		}
		runner.Start()
		// first sweep without waiting for the next cron tick
		if _, err := runner.At(time.Now(), "reminder-sweep", sched.Run); err != nil {
			logger.Warn("initial sweep", "err", err)
		}
		logger.Info("reminders enabled", "sweep", cfg.SweepSpec, "horizon", cfg.Horizon, "tz", cfg.Location)
	}

	h := handlers.New(handlers.Deps{
		Users:         users,
		Habits:        habits,
		Tokens:        tokens,
		Dispatcher:    bot.NewDispatcher(tg, users),
		Metrics:       m,
		BotUsername:   cfg.TelegramBotUsername,
		WebhookSecret: cfg.WebhookSecret,
	})
	if cfg.PublicURL != "" && cfg.WebhookSecret != "" {
		logger.Info("telegram webhook endpoint", "url", cfg.PublicURL+"/tg/webhook?secret=<TG_WEBHOOK_SECRET>")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.Router(h, tokens, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("habits listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	runner.Stop()
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
