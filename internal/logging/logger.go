package logging

import (
	"fmt"

	"github.com/mikey/llm-email-triage/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the triage service logger from the logging.* config
// section. Every entry carries an app field so triage lines are separable
// when the daemon shares a log stream with the MTA.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	logConfig := configFor(cfg.GetString("logging.format") == "json", parseLevel(cfg.GetString("logging.level")))

	logger, err := logConfig.Build(zap.Fields(zap.String("app", "email-triage")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

// InitConsoleLogger builds the logger for one-shot triage-cli runs, where
// the audit trail goes to stdout and logs stay on stderr.
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	logger, err := configFor(jsonFormat, level).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

func configFor(jsonFormat bool, level zapcore.Level) zap.Config {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig
}

func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
