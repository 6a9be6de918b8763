// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/infraconfig/internal/crypto"
)

// Config holds the process-level settings. Infra config values managed by the
// service itself are read through Defaults, not here.
type Config struct {
	ListenAddr    string
	DatabaseURL   string
	EncryptionKey []byte
	RedisURL      string
	RestartDelay  time.Duration
	LogLevel      slog.Level
}

// HasRedis reports whether change notifications should go through Redis.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// Load reads configuration from the environment (and a .env file when one
// exists) and returns a validated Config. DATA_ENCRYPTION_KEY is required.
// Optional variables with defaults: LISTEN_ADDR (127.0.0.1:8080),
// DATABASE_URL (infraconfig.db), RESTART_DELAY (5s), LOG_LEVEL (info).
// REDIS_URL enables Redis notifications.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LISTEN_ADDR", "127.0.0.1:8080")
	v.SetDefault("DATABASE_URL", "infraconfig.db")
	v.SetDefault("RESTART_DELAY", "5s")
	v.SetDefault("LOG_LEVEL", "info")

	rawKey := v.GetString("DATA_ENCRYPTION_KEY")
	if rawKey == "" {
		return nil, errors.New("DATA_ENCRYPTION_KEY is required")
	}
	key, err := crypto.ParseKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY: %w", err)
	}

	rawDelay := v.GetString("RESTART_DELAY")
	delay, err := time.ParseDuration(rawDelay)
	if err != nil {
		return nil, fmt.Errorf("RESTART_DELAY has invalid duration %q: %w", rawDelay, err)
	}
	if delay < 0 {
		return nil, fmt.Errorf("RESTART_DELAY must not be negative, got %s", delay)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v.GetString("LOG_LEVEL")))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return &Config{
		ListenAddr:    v.GetString("LISTEN_ADDR"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		EncryptionKey: key,
		RedisURL:      v.GetString("REDIS_URL"),
		RestartDelay:  delay,
		LogLevel:      level,
	}, nil
}
