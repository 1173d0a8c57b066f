package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"issaudit/internal/logger"
)

// DateLayout is the format of AUDIT_TODAY.
const DateLayout = "2006-01-02"

// ErrNoCredentials is returned when no Google service account is configured.
var ErrNoCredentials = errors.New("neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set")

type Config struct {
	// Audit run
	Today          time.Time // statute clock date, wall clock date when unset
	SimplifiedMode bool
	DisabledRules  []string

	// Google Sheets Configuration
	GoogleSheetURL        string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		DisabledRules:         splitList(getEnv("AUDIT_DISABLED_RULES", "")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	today := getEnv("AUDIT_TODAY", "")
	if today == "" {
		config.Today = time.Now()
	} else {
		t, err := time.Parse(DateLayout, today)
		if err != nil {
			return nil, fmt.Errorf("config validation failed: AUDIT_TODAY must be YYYY-MM-DD, got %q", today)
		}
		config.Today = t
	}

	simplified, err := strconv.ParseBool(getEnv("AUDIT_SIMPLIFIED_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: AUDIT_SIMPLIFIED_MODE: %w", err)
	}
	config.SimplifiedMode = simplified

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// GoogleCredentials returns the service account JSON, preferring the file.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleCredentialsFile != "" {
		creds, err := os.ReadFile(c.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return creds, nil
	}
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	return nil, ErrNoCredentials
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
