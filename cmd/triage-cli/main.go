package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
	"github.com/mikey/llm-email-triage/internal/di"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, service *core.TriageService) error {
	defer logger.Sync()

	// Read email from file or stdin
	var emailReader io.Reader
	var emailID string
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		emailReader = file
		emailID = flags.InputFile
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		emailID = "stdin"
		logger.Info("Reading email from stdin")
	}

	data, err := io.ReadAll(emailReader)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	record := service.ProcessEmail(context.Background(), core.RawEmail{
		ID:         emailID,
		Data:       data,
		ReceivedAt: time.Now(),
	})
	printRecord(record)

	if record.State == core.StateFailed {
		os.Exit(2)
	}
	return nil
}

func printRecord(record *core.SessionRecord) {
	fmt.Printf("Session:  %s\n", record.ID)
	fmt.Printf("State:    %s\n", record.State)
	if record.Intent != nil {
		fmt.Printf("Intent:   %s (confidence %.2f, model %s)\n",
			record.Intent.Kind, record.Intent.Confidence, record.Intent.Model)
		if record.Intent.Rationale != "" {
			fmt.Printf("Rationale: %s\n", record.Intent.Rationale)
		}
	}
	if record.Plan != nil {
		if record.Plan.Reviewable {
			fmt.Printf("Review:   %s\n", record.Plan.ReviewReason)
		}
		if len(record.Plan.TargetOrders) > 0 {
			fmt.Printf("Orders:   %v\n", record.Plan.TargetOrders)
		}
	}
	for i, result := range record.Results {
		fmt.Printf("  [%d] %-24s %-8s attempts=%d  %s\n",
			i, result.Tool, result.Status, result.Attempts, result.Summary)
	}
	fmt.Printf("Summary:  %s\n", record.Summary)
	if record.State == core.StateFailed {
		fmt.Printf("Error:    %s\n", record.ErrorKind)
	}
}
