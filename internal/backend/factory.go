package backend

import (
	"context"
	"fmt"

	"custos/internal/config"
	"custos/internal/log"
	sfile "custos/internal/sheets/file"
	gsheet "custos/internal/sheets/google"
	"custos/internal/sheets/memory"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataSource)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid data source in config: %s", appConfig.DataSource)
	}

	return Config{
		Type:                backendType,
		SourcePath:          appConfig.SourcePath,
		SourceSheet:         appConfig.SourceSheet,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case FileBackend:
		if c.SourcePath == "" {
			return fmt.Errorf("source path is required for file backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	}
	return nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		f.logger.Info("Initialized file source", "path", config.SourcePath, "sheet", config.SourceSheet)
		return &BackendResult{Reader: sfile.New(config.SourcePath, config.SourceSheet)}, nil
	case SheetsBackend:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets source", "spreadsheet_id", config.GoogleSpreadsheetID)
		return &BackendResult{Reader: cli}, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory source with sample data")
		return &BackendResult{Reader: memory.NewSample()}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
