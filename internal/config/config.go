package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required,notEmpty"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL"`

	// Mini-app identity used for invite links
	BotUsername string `env:"BOT_USERNAME"`
	BotHost     string `env:"BOT_HOST" envDefault:"t.me"`

	// Calendar: daily boundaries follow this zone
	TimeZone string `env:"TIME_ZONE" envDefault:"UTC"`

	// Membership verification polling
	VerifyInterval time.Duration `env:"VERIFY_INTERVAL" envDefault:"3s"`
	VerifyAttempts int           `env:"VERIFY_ATTEMPTS" envDefault:"100"`

	// Ledger
	LedgerMaxRetries  int   `env:"LEDGER_MAX_RETRIES" envDefault:"25"`
	WeeklyHistoryWipe bool  `env:"WEEKLY_HISTORY_WIPE" envDefault:"false"`
	DBMaxConns        int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32 `env:"DB_MIN_CONNS" envDefault:"1"`

	// Farming
	FarmingDuration time.Duration `env:"FARMING_DURATION" envDefault:"8h"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Server (metrics)
	Port int `env:"PORT" envDefault:"3000"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID    int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration int   `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicReferral     int   `env:"LOG_TOPIC_REFERRAL"`
	LogTopicClaim        int   `env:"LOG_TOPIC_CLAIM"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) AdminIDsString() string {
	parts := make([]string, len(c.AdminIDs))
	for i, id := range c.AdminIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
