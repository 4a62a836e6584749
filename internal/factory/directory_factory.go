package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/adapters/directory"
	"github.com/mikey/llm-email-triage/internal/config"
	"github.com/mikey/llm-email-triage/internal/core"
)

// DirectoryFactory creates business directories based on configuration
type DirectoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDirectoryFactory creates a new directory factory
func NewDirectoryFactory(cfg *config.Config, logger *zap.Logger) *DirectoryFactory {
	return &DirectoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDirectory creates a business directory based on the configuration.
// The memory directory comes pre-seeded with demonstration data.
func (f *DirectoryFactory) CreateDirectory() (core.BusinessDirectory, error) {
	dirConfig := f.cfg.GetDirectory()

	switch dirConfig.Type {
	case "memory":
		return directory.NewSeededMemoryDirectory(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dirConfig.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return directory.NewSQLiteDirectory(dirConfig.SQLitePath, f.logger)
	case "mysql":
		return directory.NewMySQLDirectory(dirConfig.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported directory type: %s", dirConfig.Type)
	}
}
