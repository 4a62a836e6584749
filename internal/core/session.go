package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClassifyConfig bounds retries and the per-call timeout for the classify
// stage.
type ClassifyConfig struct {
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

// SessionDeps are the collaborators a session needs. The session never knows
// which classification strategy or directory backend is behind the ports.
type SessionDeps struct {
	Normalizer Normalizer
	Classifier Classifier
	Executor   *ToolExecutor
	Sink       ProgressSink
	Logger     *zap.Logger
	Policy     RoutePolicy
	Classify   ClassifyConfig
}

// Session processes exactly one email through the
// normalize → classify → route → execute pipeline. Sessions are independent:
// they share no mutable state with one another, only the Business Directory
// behind the executor. A session is never reused for another email.
type Session struct {
	raw    RawEmail
	record *SessionRecord
	deps   SessionDeps
}

// NewSession creates a session for one raw email.
func NewSession(raw RawEmail, deps SessionDeps) *Session {
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Classify.Backoff <= 0 {
		deps.Classify.Backoff = 500 * time.Millisecond
	}
	return &Session{
		raw: raw,
		deps: deps,
		record: &SessionRecord{
			ID:        uuid.NewString(),
			EmailID:   raw.ID,
			State:     StateCreated,
			CreatedAt: time.Now(),
		},
	}
}

// Run drives the session to a terminal state and returns the audit record.
// It never returns an error: failures are terminal session states carried on
// the record. Cancellation is honored between stages; an interception that
// has already been issued completes and is recorded.
func (s *Session) Run(ctx context.Context) *SessionRecord {
	rec := s.record

	if err := s.transition(StateNormalizing); err != nil {
		return s.fail(err)
	}
	email, err := s.deps.Normalizer.Normalize(s.raw)
	if err != nil {
		return s.fail(err)
	}
	rec.Email = email

	if err := s.cancelled(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.transition(StateClassifying); err != nil {
		return s.fail(err)
	}
	intent, err := s.classify(ctx, email)
	if err != nil {
		return s.fail(err)
	}
	rec.Intent = intent
	s.deps.Logger.Info("Email classified",
		zap.String("session_id", rec.ID),
		zap.String("email_id", rec.EmailID),
		zap.String("intent", string(intent.Kind)),
		zap.Float64("confidence", intent.Confidence))

	if err := s.cancelled(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.transition(StateRouting); err != nil {
		return s.fail(err)
	}
	plan := Route(intent, email, s.deps.Policy)
	rec.Plan = plan

	if err := s.cancelled(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.transition(StateExecuting); err != nil {
		return s.fail(err)
	}
	rec.Results = s.deps.Executor.Execute(ctx, rec.ID, plan)

	terminal := StateCompleted
	if plan.Reviewable {
		terminal = StateAwaitingConfirmation
	}
	return s.finish(terminal)
}

// classify calls the classifier with a per-attempt timeout, retrying
// ClassificationUnavailable within the retry budget.
func (s *Session) classify(ctx context.Context, email *NormalizedEmail) (*Intent, error) {
	backoff := s.deps.Classify.Backoff
	var lastErr error

	for attempt := 0; attempt <= s.deps.Classify.MaxRetries; attempt++ {
		callCtx := ctx
		cancel := func() {}
		if s.deps.Classify.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.deps.Classify.Timeout)
		}
		intent, err := s.deps.Classifier.Classify(callCtx, email)
		cancel()
		if err == nil {
			return intent, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = ClassificationUnavailable(err)
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err

		s.deps.Logger.Warn("Classification unavailable, retrying",
			zap.String("session_id", s.record.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, &TriageError{Kind: ErrKindCancelled, Err: ctx.Err()}
		}
		backoff *= 2
	}

	return nil, lastErr
}

func (s *Session) cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &TriageError{Kind: ErrKindCancelled, Err: err}
	}
	return nil
}

func (s *Session) transition(next SessionState) error {
	state, err := s.record.State.Transition(next)
	if err != nil {
		return err
	}
	s.record.State = state
	s.deps.Sink.StageChanged(s.record.ID, state)
	return nil
}

func (s *Session) fail(cause error) *SessionRecord {
	rec := s.record
	rec.State = StateFailed
	rec.ErrorKind = KindOf(cause)
	rec.Summary = fmt.Sprintf("processing failed (%s): %v", rec.ErrorKind, cause)
	rec.FinishedAt = time.Now()
	s.deps.Sink.StageChanged(rec.ID, StateFailed)
	s.deps.Logger.Error("Session failed",
		zap.String("session_id", rec.ID),
		zap.String("email_id", rec.EmailID),
		zap.String("error_kind", string(rec.ErrorKind)),
		zap.Error(cause))
	return rec
}

func (s *Session) finish(terminal SessionState) *SessionRecord {
	rec := s.record
	rec.State = terminal
	rec.FinishedAt = time.Now()
	rec.Summary = s.summarize(terminal)
	s.deps.Sink.StageChanged(rec.ID, terminal)
	s.deps.Logger.Info("Session finished",
		zap.String("session_id", rec.ID),
		zap.String("email_id", rec.EmailID),
		zap.String("state", string(terminal)))
	return rec
}

func (s *Session) summarize(terminal SessionState) string {
	rec := s.record
	if terminal == StateAwaitingConfirmation {
		return fmt.Sprintf("intent %s (confidence %.2f): %s; awaiting operator confirmation",
			rec.Intent.Kind, rec.Intent.Confidence, rec.Plan.ReviewReason)
	}
	succeeded := 0
	for _, r := range rec.Results {
		if r.Status == ResultOK {
			succeeded++
		}
	}
	return fmt.Sprintf("intent %s (confidence %.2f): %d tool call(s), %d succeeded",
		rec.Intent.Kind, rec.Intent.Confidence, len(rec.Results), succeeded)
}
