package logging

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// StageLogger reports session stage transitions through the structured log.
type StageLogger struct {
	logger *zap.Logger
}

// NewStageLogger creates a progress sink that logs every stage change.
func NewStageLogger(logger *zap.Logger) *StageLogger {
	return &StageLogger{logger: logger}
}

// StageChanged implements core.ProgressSink.
func (s *StageLogger) StageChanged(sessionID string, state core.SessionState) {
	s.logger.Info("Session stage changed",
		zap.String("session_id", sessionID),
		zap.String("state", string(state)))
}
