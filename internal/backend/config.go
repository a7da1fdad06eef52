package backend

import (
	"fmt"
	"time"

	"pocketbook/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		BigQueryProjectID:    appConfig.BigQueryProjectID,
		BigQueryDatasetID:    appConfig.BigQueryDatasetID,
		BigQueryPollInterval: appConfig.BigQueryPollInterval,

		DataDirectory: appConfig.DataDirectory,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case BigQueryBackend:
		if c.BigQueryProjectID == "" {
			return fmt.Errorf("BigQuery project ID is required for bigquery backend")
		}
		if c.BigQueryDatasetID == "" {
			return fmt.Errorf("BigQuery dataset ID is required for bigquery backend")
		}
		if c.BigQueryPollInterval != 0 && c.BigQueryPollInterval < time.Second {
			return fmt.Errorf("BigQuery poll interval must be at least 1 second")
		}

	case FileBackend:
		// DataDirectory defaults to "data" when empty.
	}

	return nil
}
