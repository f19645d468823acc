// Package config reads the application settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"kakeibo/internal/log"
)

type Config struct {
	// HTTP server
	Port string

	// Storage
	DataBackend    string
	SQLiteDBPath   string
	MemorySeedFile string

	// AMQP; publishing is disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	SyncOnStart              bool

	// Charts and analytics
	ChartLocale       string
	CurrencySuffix    string
	AnalyticsCacheTTL time.Duration

	// POST requests per second allowed per client, and the burst on top.
	RateLimit float64
	RateBurst int

	LogLevel string
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:    getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SyncOnStart:              getEnvBool("SYNC_ON_START", false),

		ChartLocale:       getEnv("CHART_LOCALE", "ja-JP"),
		CurrencySuffix:    getEnv("CURRENCY_SUFFIX", "円"),
		AnalyticsCacheTTL: getEnvDuration("ANALYTICS_CACHE_TTL", 5*time.Minute),

		RateLimit: getEnvFloat("RATE_LIMIT", 5),
		RateBurst: getEnvInt("RATE_BURST", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings the web app needs and reports every problem
// at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := language.Parse(c.ChartLocale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid chart locale '%s': %v", c.ChartLocale, err))
	}
	if c.AnalyticsCacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid analytics cache TTL %v: must be positive", c.AnalyticsCacheTTL))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimit))
	}
	if c.RateBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate burst %d: must be at least 1", c.RateBurst))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	return joinErrors(errs)
}

// ValidateWorker checks the settings the sync worker needs on top of the
// shared ones: a broker and an export target.
func (c *Config) ValidateWorker() error {
	var errs []string
	if err := c.Validate(); err != nil {
		errs = append(errs, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.DataBackend != "sqlite" {
		errs = append(errs, "sync worker requires the sqlite backend")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required by the sync worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required by the sync worker")
	}
	if c.GoogleServiceAccountFile == "" {
		errs = append(errs, "GOOGLE_SERVICE_ACCOUNT_FILE is required by the sync worker")
	} else if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
		errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
	}
	return joinErrors(errs)
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
