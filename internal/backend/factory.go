package backend

import (
	"context"
	"fmt"
	"log/slog"

	"pocketbook/internal/adapters"
	"pocketbook/internal/storage"
	"pocketbook/internal/store/cloud"
	"pocketbook/internal/store/file"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case BigQueryBackend:
		return f.createBigQueryBackend(ctx, config)
	case FileBackend:
		return f.createFileBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	s := adapters.NewSQLiteStore(repo)

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   s,
		Cleanup: s.Close,
	}, nil
}

func (f *DefaultFactory) createBigQueryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	s, err := cloud.New(ctx, cloud.Config{
		ProjectID:    config.BigQueryProjectID,
		DatasetID:    config.BigQueryDatasetID,
		PollInterval: config.BigQueryPollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize BigQuery store: %w", err)
	}

	f.logger.Info("Initialized BigQuery backend",
		"project", config.BigQueryProjectID,
		"dataset", config.BigQueryDatasetID)

	return &BackendResult{
		Store:   s,
		Cleanup: s.Close,
	}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	s, err := file.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   s,
		Cleanup: nil,
	}, nil
}
