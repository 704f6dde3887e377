package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken     string
	DatabaseURL       string
	ReconcileInterval time.Duration
	DigestTime        string
	LogLevel          string
}

// Load reads configuration from a .env file, when present, and then from
// environment variables with sane defaults. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		TelegramToken:     strings.TrimSpace(getenv("TELEGRAM_TOKEN")),
		DatabaseURL:       strings.TrimSpace(getenv("DATABASE_URL")),
		ReconcileInterval: parseMinutes(strings.TrimSpace(getenv("RECONCILE_INTERVAL_MINUTES"))),
		DigestTime:        strings.TrimSpace(getenv("DIGEST_TIME")),
		LogLevel:          strings.TrimSpace(getenv("LOG_LEVEL")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskflow.db"
	}
	if cfg.ReconcileInterval == 0 {
		cfg.ReconcileInterval = 15 * time.Minute
	}
	if cfg.DigestTime == "" {
		cfg.DigestTime = "08:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseMinutes(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
