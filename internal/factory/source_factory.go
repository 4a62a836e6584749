package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/adapters/source"
	"github.com/mikey/llm-email-triage/internal/config"
	"github.com/mikey/llm-email-triage/internal/core"
)

// SourceFactory creates email sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates an email source based on the configuration
func (f *SourceFactory) CreateSource() (core.EmailSource, error) {
	srcConfig := f.cfg.GetSource()

	switch srcConfig.Type {
	case "dir":
		return source.NewDirSource(srcConfig.Dir, f.logger)
	case "smtp":
		return source.NewSMTPSource(srcConfig.ListenAddress, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", srcConfig.Type)
	}
}
