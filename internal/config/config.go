package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"streak-bot/internal/logger"
	"streak-bot/internal/registry"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Addr string

	TelegramToken string
	WebhookURL    string // public base URL; setWebhook is skipped when empty
	WebhookSecret string

	StoreBackend string
	RedisAddr    string
	DBDSN        string

	LeetCodeURL      string
	FetchTimeout     time.Duration
	FetchConcurrency int
	CacheTTL         time.Duration // 0 disables the activity cache
	VerifyPolicy     registry.VerifyPolicy
	Location         *time.Location

	JWTSecret       string // API and feed are disabled when empty
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:             getEnv("ADDR", ":8080"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		WebhookURL:       strings.TrimRight(os.Getenv("WEBHOOK_URL"), "/"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		DBDSN:            os.Getenv("DB_DSN"),
		LeetCodeURL:      getEnv("LEETCODE_URL", "https://leetcode.com/graphql"),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 4),
		CacheTTL:         getEnvDuration("CACHE_TTL", 10*time.Minute),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}

	switch cfg.StoreBackend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN is not set (required for STORE_BACKEND=postgres)")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	policy, err := registry.ParseVerifyPolicy(os.Getenv("VERIFY_POLICY"))
	if err != nil {
		return nil, err
	}
	cfg.VerifyPolicy = policy

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	if loc != time.UTC {
		logger.Warning("TIMEZONE=%s: LeetCode activity days start at UTC midnight, streaks may read 0 outside UTC", loc)
	}
	cfg.Location = loc

	return cfg, nil
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.StoreBackend == BackendRedis || c.CacheTTL > 0 || c.JWTSecret != ""
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		logger.Warning("invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logger.Warning("invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
