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

	// Backend selection, decided once at startup
	DataBackend string

	// SQLite backend
	SQLiteDBPath string

	// File backend
	DataDirectory string

	// BigQuery backend
	BigQueryProjectID    string
	BigQueryDatasetID    string
	BigQueryPollInterval time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Guardian reports
	ReportScanInterval time.Duration
	SMTPAddr           string
	SMTPFrom           string
	SMTPUsername       string
	SMTPPassword       string

	// Avatars
	AvatarDirectory string
	GCSAvatarBucket string

	// AI parsing
	GenAIModel string

	// Sessions
	SessionTTL time.Duration

	// POST requests allowed per client IP per minute
	RateLimitPerMinute int
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "file"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/pocketbook.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "./data"),

		BigQueryProjectID:    getEnv("BIGQUERY_PROJECT_ID", ""),
		BigQueryDatasetID:    getEnv("BIGQUERY_DATASET_ID", "pocketbook"),
		BigQueryPollInterval: getEnvDuration("BIGQUERY_POLL_INTERVAL", 5*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pocketbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "guardian_reports"),

		ReportScanInterval: getEnvDuration("REPORT_SCAN_INTERVAL", time.Hour),
		SMTPAddr:           getEnv("SMTP_ADDR", "localhost:25"),
		SMTPFrom:           getEnv("SMTP_FROM", "reports@pocketbook.local"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),

		AvatarDirectory: getEnv("AVATAR_DIRECTORY", "./data/avatars"),
		GCSAvatarBucket: getEnv("GCS_AVATAR_BUCKET", ""),

		GenAIModel: getEnv("GENAI_MODEL", "gemini-2.0-flash"),

		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
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

	validBackends := []string{"file", "sqlite", "bigquery"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
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
	}

	if c.DataBackend == "file" && c.DataDirectory == "" {
		errors = append(errors, "data directory cannot be empty when using file backend")
	}

	if c.DataBackend == "bigquery" {
		if c.BigQueryProjectID == "" {
			errors = append(errors, "BigQuery project ID is required when using bigquery backend")
		}
		if c.BigQueryDatasetID == "" {
			errors = append(errors, "BigQuery dataset ID is required when using bigquery backend")
		}
		if c.BigQueryPollInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid BigQuery poll interval %v: must be at least 1 second", c.BigQueryPollInterval))
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

	if c.ReportScanInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid report scan interval %v: must be at least 1 minute", c.ReportScanInterval))
	} else if c.ReportScanInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report scan interval %v: must be at most 7 days", c.ReportScanInterval))
	}

	if c.SMTPAddr != "" && !strings.Contains(c.SMTPAddr, ":") {
		errors = append(errors, fmt.Sprintf("invalid SMTP address '%s': must be host:port", c.SMTPAddr))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
