package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	DatabasePath string
	PublicURL    string

	JWTSecret string
	JWTTTL    time.Duration

	TelegramToken       string
	TelegramBotUsername string
	WebhookSecret       string

	RemindersEnabled bool
	SweepSpec        string
	Horizon          time.Duration
	Location         *time.Location

	LogLevel string
	LogFile  string
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:                get("ADDR", ":8080"),
		DatabasePath:        get("DATABASE_PATH", "habits.db"),
		PublicURL:           strings.TrimRight(get("PUBLIC_URL", ""), "/"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TelegramToken:       os.Getenv("TG_BOT_TOKEN"),
		TelegramBotUsername: strings.TrimPrefix(os.Getenv("TG_BOT_USERNAME"), "@"),
		WebhookSecret:       os.Getenv("TG_WEBHOOK_SECRET"),
		RemindersEnabled:    os.Getenv("TG_ENABLE_REMINDERS") == "1",
		SweepSpec:           get("REMIND_SWEEP_SPEC", "*/15 * * * *"),
		LogLevel:            get("LOG_LEVEL", "info"),
		LogFile:             os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.JWTTTL, err = duration("JWT_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Horizon, err = duration("REMIND_HORIZON", time.Hour); err != nil {
		return nil, err
	}

	tz := get("TIMEZONE", "UTC")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	if cfg.JWTSecret == "" {
		if os.Getenv("APP_ENV") == "production" {
			return nil, fmt.Errorf("missing env JWT_SECRET")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

func get(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func duration(k string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", k, raw)
	}
	return d, nil
}
