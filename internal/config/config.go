package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// LINE messaging
	LineChannelSecret      string
	LineChannelAccessToken string

	// Classifier
	ActivationToken string

	// Database. A non-empty PostgresDSN selects the postgres backend,
	// otherwise records live in the SQLite file.
	SQLiteDBPath string
	PostgresDSN  string

	// AMQP. Empty URL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID     string
	GoogleSheetName         string
	GoogleCredentialsFile   string
	GoogleCredentialsJSON   string
	ExportReconnectInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),

		ActivationToken: getEnv("ACTIVATION_TOKEN", "@ai"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/jizhang.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "jizhang"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:     getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:         getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleCredentialsFile:   getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON:   getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		ExportReconnectInterval: getEnvDuration("EXPORT_RECONNECT_INTERVAL", 30*time.Second),
	}

	return cfg
}

// Validate collects every misconfiguration instead of stopping at the
// first one.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.LineChannelSecret == "" {
		errors = append(errors, "LINE_CHANNEL_SECRET is required")
	}
	if c.LineChannelAccessToken == "" {
		errors = append(errors, "LINE_CHANNEL_ACCESS_TOKEN is required")
	}

	if c.ActivationToken == "" {
		errors = append(errors, "activation token cannot be empty")
	}

	if c.PostgresDSN == "" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty without a postgres DSN")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ExportReconnectInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export reconnect interval %v: must be at least 1 second", c.ExportReconnectInterval))
	} else if c.ExportReconnectInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export reconnect interval %v: must be at most 24 hours", c.ExportReconnectInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateExport checks the extra settings the export worker needs on top
// of Validate.
func (c *Config) ValidateExport() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty")
	}

	hasFile := c.GoogleCredentialsFile != ""
	hasJSON := c.GoogleCredentialsJSON != ""
	if !hasFile && !hasJSON {
		errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("export configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
