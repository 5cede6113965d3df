package backend

import (
	"context"

	"custos/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the reader instance and optional cleanup function
type BackendResult struct {
	Reader  sheets.TableReader
	Cleanup CleanupFunc
}

// Factory creates table readers based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for reader creation
type Config struct {
	Type BackendType

	// File specific
	SourcePath  string
	SourceSheet string

	// Google Sheets credentials are read from the environment by the
	// sheets client; the id is kept here for validation and logs.
	GoogleSpreadsheetID string
}

// BackendType represents the type of data source
type BackendType string

const (
	FileBackend   BackendType = "file"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
