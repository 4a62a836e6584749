package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig collects the tunables of the triage pipeline.
type ServiceConfig struct {
	ConfidenceThreshold   float64
	MaxConcurrentSessions int
	ClassifyRetries       int
	ClassifyBackoff       time.Duration
	ClassifyTimeout       time.Duration
	ToolRetries           int
	ToolBackoff           time.Duration
	ToolTimeout           time.Duration
}

// TriageService is the core service: it creates one processing session per
// email and runs sessions concurrently and independently. The Business
// Directory is the only resource sessions share.
type TriageService struct {
	normalizer Normalizer
	classifier Classifier
	executor   *ToolExecutor
	sink       ProgressSink
	logger     *zap.Logger
	cfg        ServiceConfig
}

// NewTriageService creates a new triage service.
func NewTriageService(
	normalizer Normalizer,
	classifier Classifier,
	directory BusinessDirectory,
	sink ProgressSink,
	logger *zap.Logger,
	cfg ServiceConfig,
) *TriageService {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 1
	}
	executor := NewToolExecutor(directory, logger, ExecutorConfig{
		MaxRetries: cfg.ToolRetries,
		Backoff:    cfg.ToolBackoff,
		Timeout:    cfg.ToolTimeout,
	})
	return &TriageService{
		normalizer: normalizer,
		classifier: classifier,
		executor:   executor,
		sink:       sink,
		logger:     logger,
		cfg:        cfg,
	}
}

// ProcessEmail runs one session to a terminal state and returns its record.
func (s *TriageService) ProcessEmail(ctx context.Context, raw RawEmail) *SessionRecord {
	session := NewSession(raw, SessionDeps{
		Normalizer: s.normalizer,
		Classifier: s.classifier,
		Executor:   s.executor,
		Sink:       s.sink,
		Logger:     s.logger,
		Policy:     RoutePolicy{ConfidenceThreshold: s.cfg.ConfidenceThreshold},
		Classify: ClassifyConfig{
			MaxRetries: s.cfg.ClassifyRetries,
			Backoff:    s.cfg.ClassifyBackoff,
			Timeout:    s.cfg.ClassifyTimeout,
		},
	})
	return session.Run(ctx)
}

// ProcessAll enumerates the source and processes every email, at most
// MaxConcurrentSessions at a time. A slow session never stalls the others.
// Records come back in source order.
func (s *TriageService) ProcessAll(ctx context.Context, source EmailSource) ([]*SessionRecord, error) {
	raws, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate email source: %w", err)
	}

	s.logger.Info("Processing emails",
		zap.Int("count", len(raws)),
		zap.Int("max_concurrent", s.cfg.MaxConcurrentSessions))

	records := make([]*SessionRecord, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentSessions)

	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			records[i] = s.ProcessEmail(gctx, raw)
			return nil
		})
	}

	// Sessions report failures through their records, never as errors.
	_ = g.Wait()
	return records, nil
}

// ProcessByID fetches one email from the source and processes it.
func (s *TriageService) ProcessByID(ctx context.Context, source EmailSource, id string) (*SessionRecord, error) {
	raw, err := source.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch email %q: %w", id, err)
	}
	return s.ProcessEmail(ctx, *raw), nil
}
