package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/reviewsync/internal/logger"
)

type Config struct {
	// server
	Addr           string
	DBPath         string
	RequestTimeout time.Duration

	// study client
	ServerURL           string
	QueuePath           string
	FlushInterval       time.Duration
	FlushTimeout        time.Duration
	FlushRetryPerMinute int
	DuePageSize         int

	SchedulerParams string
	LogLevel        string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DBPath:              envOr("DB_PATH", "file:reviewsync.db"),
		RequestTimeout:      envSecondsOr("REQUEST_TIMEOUT_SECONDS", 30),
		ServerURL:           envOr("SERVER_URL", "http://localhost:8080"),
		QueuePath:           envOr("QUEUE_PATH", "reviewsync-queue.db"),
		FlushInterval:       envSecondsOr("FLUSH_INTERVAL_SECONDS", 30),
		FlushTimeout:        envSecondsOr("FLUSH_TIMEOUT_SECONDS", 10),
		FlushRetryPerMinute: envIntOr("FLUSH_RETRY_PER_MINUTE", 6),
		DuePageSize:         envIntOr("DUE_PAGE_SIZE", 20),
		SchedulerParams:     os.Getenv("SCHEDULER_PARAMS"),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "REQUEST_TIMEOUT_SECONDS must not be negative")
	}
	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("SERVER_URL must be an http(s) URL, got %q", c.ServerURL))
	}
	if c.QueuePath == "" {
		problems = append(problems, "QUEUE_PATH cannot be empty")
	}
	if c.FlushInterval <= 0 {
		problems = append(problems, "FLUSH_INTERVAL_SECONDS must be positive")
	}
	if c.FlushTimeout <= 0 {
		problems = append(problems, "FLUSH_TIMEOUT_SECONDS must be positive")
	}
	if c.FlushRetryPerMinute <= 0 {
		problems = append(problems, "FLUSH_RETRY_PER_MINUTE must be positive")
	}
	if c.DuePageSize < 1 || c.DuePageSize > 100 {
		problems = append(problems, "DUE_PAGE_SIZE must be between 1 and 100")
	}
	if c.SchedulerParams != "" {
		if _, err := os.Stat(c.SchedulerParams); err != nil {
			problems = append(problems, fmt.Sprintf("SCHEDULER_PARAMS not readable: %v", err))
		}
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
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

func envSecondsOr(key string, def int) time.Duration {
	return time.Duration(envIntOr(key, def)) * time.Second
}
