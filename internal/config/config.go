// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

type Config struct {
	Monarch   MonarchConfig
	Warehouse WarehouseConfig
	Budgets   BudgetsConfig
	Forecast  ForecastConfig
	Archive   ArchiveConfig
	Secrets   SecretsConfig
	Server    ServerConfig
	Log       LogConfig
}

type MonarchConfig struct {
	BaseURL string
	Timeout time.Duration
}

type WarehouseConfig struct {
	// Project overrides the service account's project id when set.
	Project         string
	Location        string
	MonarchSchema   string
	ForecastSchema  string
	ForecastPrefix  string
	IsolateFailures bool
}

type BudgetsConfig struct {
	// Zero values select the default range.
	StartDate time.Time
	EndDate   time.Time
}

type ForecastConfig struct {
	Enabled bool
	View    string
	Periods int
}

type ArchiveConfig struct {
	// Location is gs://bucket/prefix; empty disables archiving.
	Location string
}

type SecretsConfig struct {
	// Project holds the fallback Monarch secrets; empty disables the fallback.
	Project string
}

type ServerConfig struct {
	Port string
	Host string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("MONARCH_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONARCH_TIMEOUT: %w", err)
	}

	periods, err := strconv.Atoi(getEnv("ZWICKFI_FORECAST_PERIODS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid ZWICKFI_FORECAST_PERIODS: %w", err)
	}

	budgetStart, err := getDateEnv("ZWICKFI_BUDGET_START")
	if err != nil {
		return nil, err
	}
	budgetEnd, err := getDateEnv("ZWICKFI_BUDGET_END")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Monarch: MonarchConfig{
			BaseURL: getEnv("MONARCH_BASE_URL", "https://api.monarch.com"),
			Timeout: timeout,
		},
		Warehouse: WarehouseConfig{
			Project:         getEnv("ZWICKFI_PROJECT", ""),
			Location:        getEnv("ZWICKFI_LOCATION", "US"),
			MonarchSchema:   getEnv("ZWICKFI_MONARCH_SCHEMA", "monarch_money"),
			ForecastSchema:  getEnv("ZWICKFI_FORECAST_SCHEMA", "forecasts"),
			ForecastPrefix:  getEnv("ZWICKFI_FORECAST_TABLE_PREFIX", "credit_card_forecast_"),
			IsolateFailures: getBoolEnv("ZWICKFI_ISOLATE_LOAD_FAILURES", false),
		},
		Budgets: BudgetsConfig{
			StartDate: budgetStart,
			EndDate:   budgetEnd,
		},
		Forecast: ForecastConfig{
			Enabled: getBoolEnv("ZWICKFI_FORECAST_ENABLED", true),
			View:    getEnv("ZWICKFI_FORECAST_VIEW", "analytics.credit_card_spending_for_forecast"),
			Periods: periods,
		},
		Archive: ArchiveConfig{
			Location: getEnv("ZWICKFI_ARCHIVE_BUCKET", ""),
		},
		Secrets: SecretsConfig{
			Project: getEnv("ZWICKFI_SECRETS_PROJECT", ""),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if cfg.Monarch.Timeout <= 0 {
		return nil, fmt.Errorf("MONARCH_TIMEOUT must be positive")
	}
	if cfg.Forecast.Periods <= 0 {
		return nil, fmt.Errorf("ZWICKFI_FORECAST_PERIODS must be positive")
	}
	if !budgetStart.IsZero() && !budgetEnd.IsZero() && budgetEnd.Before(budgetStart) {
		return nil, fmt.Errorf("ZWICKFI_BUDGET_END must not be before ZWICKFI_BUDGET_START")
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("LoadDotEnv: %s: %w", f, err)
		}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date; empty yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getDateEnv(key string) (time.Time, error) {
	d, err := ParseDate(os.Getenv(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
