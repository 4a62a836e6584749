package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/adapters/source"
	"github.com/mikey/llm-email-triage/internal/core"
	"github.com/mikey/llm-email-triage/internal/di"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	service *core.TriageService,
	emailSource core.EmailSource,
	classifier core.Classifier,
	directory core.BusinessDirectory,
) error {
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch src := emailSource.(type) {
	case *source.SMTPSource:
		// Triage every message as it arrives over SMTP
		src.OnIngest(func(ctx context.Context, email core.RawEmail) {
			record := service.ProcessEmail(ctx, email)
			logRecord(logger, record)
		})
		if err := src.Start(); err != nil {
			logger.Fatal("Failed to start SMTP source", zap.Error(err))
			return err
		}

		// Handle graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		<-sigCh
		logger.Info("Shutting down...")
		cancel()

		if err := src.Stop(); err != nil {
			logger.Error("Failed to stop SMTP source", zap.Error(err))
		}
	default:
		// Triage the full batch the source currently holds
		records, err := service.ProcessAll(ctx, emailSource)
		if err != nil {
			logger.Error("Failed to process emails", zap.Error(err))
			return err
		}
		for _, record := range records {
			logRecord(logger, record)
		}
	}

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
	if closer, ok := directory.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close directory", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

func logRecord(logger *zap.Logger, record *core.SessionRecord) {
	fields := []zap.Field{
		zap.String("session_id", record.ID),
		zap.String("email_id", record.EmailID),
		zap.String("state", string(record.State)),
		zap.String("summary", record.Summary),
	}
	if record.Intent != nil {
		fields = append(fields,
			zap.String("intent", string(record.Intent.Kind)),
			zap.Float64("confidence", record.Intent.Confidence))
	}
	if record.State == core.StateFailed {
		fields = append(fields, zap.String("error_kind", string(record.ErrorKind)))
		logger.Warn("Session finished", fields...)
		return
	}
	logger.Info("Session finished", fields...)
}
