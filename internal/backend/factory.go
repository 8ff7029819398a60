package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"salesreport/internal/amqp"
	"salesreport/internal/sheets"
	gsheet "salesreport/internal/sheets/google"
	sheetsmem "salesreport/internal/sheets/memory"
	"salesreport/internal/storage"
	"salesreport/internal/storage/memory"
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

// CreateBackend implements Factory.CreateBackend. The store is required;
// AMQP and Sheets are attached when configured and skipped with a warning
// when they cannot be reached.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: store}
	result.AMQP = f.createAMQPClient(config)
	result.Exporter = f.createExporter(ctx, config)
	result.Cleanup = cleanup(result)

	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL backend")
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAMQPClient(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPNotifyKey)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) sheets.ReportExporter {
	if config.GoogleSpreadsheetID == "" {
		if config.Type == MemoryBackend {
			f.logger.Info("Initialized memory exporter")
			return sheetsmem.New()
		}
		return nil
	}
	client, err := gsheet.NewClient(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		f.logger.Warn("Failed to initialize Google Sheets client, continuing without export", "error", err)
		return nil
	}
	f.logger.Info("Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
	return client
}

func cleanup(result *BackendResult) CleanupFunc {
	return func() error {
		var errs []error
		if result.AMQP != nil {
			if err := result.AMQP.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if result.Store != nil {
			if err := result.Store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
