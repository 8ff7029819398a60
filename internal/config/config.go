package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	applog "salesreport/internal/log"
)

type Config struct {
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// PostgreSQL
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseHost     string
	DatabasePort     string
	DatabaseSSLMode  string

	// Ingest
	InputFile         string
	IngestSkipInvalid bool

	// Report
	OutputDir   string
	TopN        int
	ChartFormat string
	ChartWidth  int
	ChartHeight int

	// AMQP
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	AMQPNotifyKey string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/sales.db"),

		DatabaseName:     getEnv("DATABASE_NAME", "sales"),
		DatabaseUser:     getEnv("DATABASE_USER", "postgres"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", ""),
		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseSSLMode:  getEnv("DATABASE_SSLMODE", "disable"),

		InputFile:         getEnv("INPUT_FILE", "sample.json"),
		IngestSkipInvalid: getEnvBool("INGEST_SKIP_INVALID", false),

		OutputDir:   getEnv("OUTPUT_DIR", "./charts"),
		TopN:        getEnvInt("TOP_N", 5),
		ChartFormat: strings.ToLower(getEnv("CHART_FORMAT", "png")),
		ChartWidth:  getEnvInt("CHART_WIDTH", 1024),
		ChartHeight: getEnvInt("CHART_HEIGHT", 600),

		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "sales"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "ingest_requests"),
		AMQPNotifyKey: getEnv("AMQP_NOTIFY_KEY", "report_ready"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Sales Report"),
	}

	return cfg
}

// ValidBackends lists the accepted DATA_BACKEND values.
var ValidBackends = []string{"sqlite", "postgres", "memory"}

// ValidChartFormats lists the accepted CHART_FORMAT values.
var ValidChartFormats = []string{"png", "svg"}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(ValidBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, ValidBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseName == "" {
			errors = append(errors, "database name is required when using postgres backend")
		}
		if c.DatabaseUser == "" {
			errors = append(errors, "database user is required when using postgres backend")
		}
		if c.DatabaseHost == "" {
			errors = append(errors, "database host is required when using postgres backend")
		}
		if port, err := strconv.Atoi(c.DatabasePort); err != nil {
			errors = append(errors, fmt.Sprintf("invalid database port '%s': must be a number", c.DatabasePort))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid database port %d: must be between 1 and 65535", port))
		}
	}

	if strings.TrimSpace(c.InputFile) == "" {
		errors = append(errors, "input file cannot be empty")
	}

	if c.OutputDir == "" {
		errors = append(errors, "output directory cannot be empty")
	}
	if c.TopN < 0 {
		errors = append(errors, fmt.Sprintf("invalid top N %d: must be zero (all items) or positive", c.TopN))
	}
	if !slices.Contains(ValidChartFormats, c.ChartFormat) {
		errors = append(errors, fmt.Sprintf("invalid chart format '%s': must be one of %v", c.ChartFormat, ValidChartFormats))
	}
	if c.ChartWidth < 200 || c.ChartWidth > 8192 {
		errors = append(errors, fmt.Sprintf("invalid chart width %d: must be between 200 and 8192", c.ChartWidth))
	}
	if c.ChartHeight < 150 || c.ChartHeight > 8192 {
		errors = append(errors, fmt.Sprintf("invalid chart height %d: must be between 150 and 8192", c.ChartHeight))
	}

	// Validate AMQP URL if provided
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
		if c.AMQPNotifyKey == "" {
			errors = append(errors, "AMQP notify routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// PostgresDSN builds a lib/pq connection URL from the DATABASE_* settings.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   c.DatabaseHost + ":" + c.DatabasePort,
		Path:   "/" + c.DatabaseName,
	}
	if c.DatabasePassword != "" {
		u.User = url.UserPassword(c.DatabaseUser, c.DatabasePassword)
	} else {
		u.User = url.User(c.DatabaseUser)
	}
	q := url.Values{}
	if c.DatabaseSSLMode != "" {
		q.Set("sslmode", c.DatabaseSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
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
