package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
)

type Config struct {
	Addr               string
	DBDriver           string
	DBPath             string
	LocalDBPath        string
	RemoteURL          string
	UserID             string
	LogLevel           string
	HTTPTimeout        time.Duration
	SyncInterval       time.Duration
	PushWorkerCount    int
	PushQueueSize      int
	PushRatePerSecond  float64
	CORSAllowedOrigins []string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:               envOr("ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite3"),
		DBPath:             envOr("DB_PATH", "file:vietcards.db"),
		LocalDBPath:        envOr("LOCAL_DB_PATH", "file:vietcards-local.db"),
		RemoteURL:          envOr("REMOTE_URL", "http://localhost:8080"),
		UserID:             envOr("USER_ID", "default_user"),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		HTTPTimeout:        time.Duration(envIntOr("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		SyncInterval:       time.Duration(envIntOr("SYNC_INTERVAL_MINUTES", 5)) * time.Minute,
		PushWorkerCount:    envIntOr("PUSH_WORKER_COUNT", 1),
		PushQueueSize:      envIntOr("PUSH_QUEUE_SIZE", 64),
		PushRatePerSecond:  envFloatOr("PUSH_RATE_PER_SECOND", 10),
		CORSAllowedOrigins: envListOr("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Addr == "" {
		add("ADDR cannot be empty")
	}
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		add("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	if c.DBPath == "" {
		add("DB_PATH cannot be empty")
	}
	if c.LocalDBPath == "" {
		add("LOCAL_DB_PATH cannot be empty")
	}
	if u, err := url.Parse(c.RemoteURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("REMOTE_URL must be an absolute URL, got %q", c.RemoteURL)
	}
	if strings.TrimSpace(c.UserID) == "" {
		add("USER_ID cannot be empty")
	}
	if !logger.ValidLevel(c.LogLevel) {
		add("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	if c.HTTPTimeout <= 0 {
		add("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.SyncInterval <= 0 {
		add("SYNC_INTERVAL_MINUTES must be positive")
	}
	if c.PushWorkerCount < 1 || c.PushWorkerCount > 32 {
		add("PUSH_WORKER_COUNT must be between 1 and 32, got %d", c.PushWorkerCount)
	}
	if c.PushQueueSize < 1 {
		add("PUSH_QUEUE_SIZE must be at least 1, got %d", c.PushQueueSize)
	}
	if c.PushRatePerSecond < 0 {
		add("PUSH_RATE_PER_SECOND cannot be negative")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		add("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		logger.Warn("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logger.Warn("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
