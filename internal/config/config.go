package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"custos/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Data source
	DataSource    string
	SourcePath    string
	SourceSheet   string
	ColumnsFile   string
	ReportDropped bool
	TopN          int

	LogLevel string

	// Load history
	SQLiteDBPath string

	// AMQP
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	AMQPEventsKey string

	// Worker
	ReloadSchedule string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// Data sources accepted in DATA_SOURCE.
const (
	SourceFile   = "file"
	SourceSheets = "sheets"
	SourceMemory = "memory"
)

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DataSource:    getEnv("DATA_SOURCE", SourceFile),
		SourcePath:    getEnv("SOURCE_PATH", "custos.xlsx"),
		SourceSheet:   getEnv("SOURCE_SHEET", ""),
		ColumnsFile:   getEnv("COLUMNS_FILE", ""),
		ReportDropped: getEnvBool("REPORT_DROPPED", false),
		TopN:          getEnvInt("TOP_N", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "custos"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "custos.reload"),
		AMQPEventsKey: getEnv("AMQP_EVENTS_KEY", "custos.dataset.loaded"),

		ReloadSchedule: getEnv("RELOAD_SCHEDULE", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validSources := []string{SourceFile, SourceSheets, SourceMemory}
	isValidSource := false
	for _, s := range validSources {
		if c.DataSource == s {
			isValidSource = true
			break
		}
	}
	if !isValidSource {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, validSources))
	}

	if c.DataSource == SourceFile && strings.TrimSpace(c.SourcePath) == "" {
		errors = append(errors, "SOURCE_PATH cannot be empty when using file source")
	}

	if c.DataSource == SourceSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.ColumnsFile != "" {
		if _, err := os.Stat(c.ColumnsFile); err != nil {
			errors = append(errors, fmt.Sprintf("columns file '%s' is not readable: %v", c.ColumnsFile, err))
		}
	}

	if c.TopN < 1 || c.TopN > 100 {
		errors = append(errors, fmt.Sprintf("invalid top n %d: must be between 1 and 100", c.TopN))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
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
		if c.AMQPEventsKey == "" {
			errors = append(errors, "AMQP events routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.ReloadSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reload schedule '%s': %v", c.ReloadSchedule, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
