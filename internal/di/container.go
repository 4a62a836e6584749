package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/config"
	"github.com/mikey/llm-email-triage/internal/core"
	"github.com/mikey/llm-email-triage/internal/factory"
	"github.com/mikey/llm-email-triage/internal/logging"
	"github.com/mikey/llm-email-triage/internal/normalize"
	"github.com/mikey/llm-email-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewDirectoryFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register business directory
	if err := container.Provide(func(f *factory.DirectoryFactory) (core.BusinessDirectory, error) {
		return f.CreateDirectory()
	}); err != nil {
		return nil, err
	}

	// Register email source
	if err := container.Provide(func(f *factory.SourceFactory) (core.EmailSource, error) {
		return f.CreateSource()
	}); err != nil {
		return nil, err
	}

	// Register normalizer
	if err := container.Provide(func(logger *zap.Logger) core.Normalizer {
		return normalize.NewEmailNormalizer(logger)
	}); err != nil {
		return nil, err
	}

	// Register progress sink
	if err := container.Provide(func(logger *zap.Logger) core.ProgressSink {
		return logging.NewStageLogger(logger)
	}); err != nil {
		return nil, err
	}

	// Register triage tunables
	if err := container.Provide(func(cfg *config.Config) core.ServiceConfig {
		triageCfg := cfg.GetTriage()
		return core.ServiceConfig{
			ConfidenceThreshold:   triageCfg.ConfidenceThreshold,
			MaxConcurrentSessions: triageCfg.MaxConcurrentSessions,
			ClassifyRetries:       triageCfg.ClassifyRetries,
			ClassifyBackoff:       triageCfg.ClassifyBackoff,
			ClassifyTimeout:       triageCfg.ClassifyTimeout,
			ToolRetries:           triageCfg.ToolRetries,
			ToolBackoff:           triageCfg.ToolBackoff,
			ToolTimeout:           triageCfg.ToolTimeout,
		}
	}); err != nil {
		return nil, err
	}

	// Register triage service
	if err := container.Provide(core.NewTriageService); err != nil {
		return nil, err
	}

	return container, nil
}
