package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNormalizer struct {
	email *NormalizedEmail
	err   error
}

func (n *fakeNormalizer) Normalize(raw RawEmail) (*NormalizedEmail, error) {
	if n.err != nil {
		return nil, n.err
	}
	email := *n.email
	email.ID = raw.ID
	return &email, nil
}

// scriptedClassifier serves queued errors before the final intent.
type scriptedClassifier struct {
	mu     sync.Mutex
	errs   []error
	intent *Intent
	calls  int
}

func (c *scriptedClassifier) Classify(_ context.Context, _ *NormalizedEmail) (*Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return nil, err
	}
	intent := *c.intent
	return &intent, nil
}

type recordingSink struct {
	mu     sync.Mutex
	states []SessionState
}

func (s *recordingSink) StageChanged(_ string, state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func sessionDeps(normalizer Normalizer, classifier Classifier, dir BusinessDirectory, sink ProgressSink) SessionDeps {
	return SessionDeps{
		Normalizer: normalizer,
		Classifier: classifier,
		Executor:   testExecutor(dir),
		Sink:       sink,
		Logger:     zap.NewNop(),
		Policy:     defaultPolicy(),
		Classify:   ClassifyConfig{MaxRetries: 2, Backoff: time.Millisecond},
	}
}

func TestSessionRunCompletes(t *testing.T) {
	sink := &recordingSink{}
	normalizer := &fakeNormalizer{email: testEmail([]string{"LC123456"}, nil)}
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentOrderCancellation, Confidence: 0.9, Model: "rules"}}

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, newFakeDirectory(), sink))
	record := session.Run(context.Background())

	assert.Equal(t, StateCompleted, record.State)
	assert.Equal(t, "email-1", record.EmailID)
	require.NotNil(t, record.Intent)
	assert.Equal(t, IntentOrderCancellation, record.Intent.Kind)
	require.NotNil(t, record.Plan)
	require.Len(t, record.Results, 2)
	assert.Equal(t, ResultOK, record.Results[1].Status)
	assert.NotEmpty(t, record.Summary)
	assert.False(t, record.FinishedAt.IsZero())

	assert.Equal(t, []SessionState{
		StateNormalizing, StateClassifying, StateRouting, StateExecuting, StateCompleted,
	}, sink.states)
}

func TestSessionMalformedEmailFails(t *testing.T) {
	sink := &recordingSink{}
	normalizer := &fakeNormalizer{err: MalformedMessage(errors.New("binary body"))}
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3}}

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, newFakeDirectory(), sink))
	record := session.Run(context.Background())

	assert.Equal(t, StateFailed, record.State)
	assert.Equal(t, ErrKindMalformedMessage, record.ErrorKind)
	assert.Zero(t, classifier.calls)
	assert.Equal(t, StateFailed, sink.states[len(sink.states)-1])
}

func TestSessionRetriesUnavailableClassifier(t *testing.T) {
	normalizer := &fakeNormalizer{email: testEmail(nil, nil)}
	classifier := &scriptedClassifier{
		errs: []error{
			ClassificationUnavailable(errors.New("connection refused")),
			ClassificationUnavailable(errors.New("connection refused")),
		},
		intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3},
	}

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, newFakeDirectory(), nil))
	record := session.Run(context.Background())

	assert.Equal(t, StateCompleted, record.State)
	assert.Equal(t, 3, classifier.calls)
}

func TestSessionClassifyRetryBudgetExhausted(t *testing.T) {
	normalizer := &fakeNormalizer{email: testEmail(nil, nil)}
	classifier := &scriptedClassifier{
		errs: []error{
			ClassificationUnavailable(errors.New("connection refused")),
			ClassificationUnavailable(errors.New("connection refused")),
			ClassificationUnavailable(errors.New("connection refused")),
		},
		intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3},
	}

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, newFakeDirectory(), nil))
	record := session.Run(context.Background())

	assert.Equal(t, StateFailed, record.State)
	assert.Equal(t, ErrKindClassificationUnavailable, record.ErrorKind)
	assert.Equal(t, 3, classifier.calls)
}

func TestSessionNonRetryableClassifierErrorFailsFast(t *testing.T) {
	normalizer := &fakeNormalizer{email: testEmail(nil, nil)}
	classifier := &scriptedClassifier{
		errs:   []error{MalformedMessage(errors.New("unreadable"))},
		intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3},
	}

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, newFakeDirectory(), nil))
	record := session.Run(context.Background())

	assert.Equal(t, StateFailed, record.State)
	assert.Equal(t, 1, classifier.calls)
}

func TestSessionReviewPlanAwaitsConfirmation(t *testing.T) {
	normalizer := &fakeNormalizer{email: testEmail([]string{"LC123456"}, nil)}
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentOrderCancellation, Confidence: 0.4}}
	dir := newFakeDirectory()

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, dir, nil))
	record := session.Run(context.Background())

	assert.Equal(t, StateAwaitingConfirmation, record.State)
	require.NotNil(t, record.Plan)
	assert.True(t, record.Plan.Reviewable)
	assert.Empty(t, dir.interceptions)
	assert.Contains(t, record.Summary, "awaiting operator confirmation")
}

func TestSessionCancelledBeforeClassify(t *testing.T) {
	normalizer := &fakeNormalizer{email: testEmail(nil, nil)}
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := NewSession(RawEmail{ID: "email-1"}, sessionDeps(normalizer, classifier, newFakeDirectory(), nil))
	record := session.Run(ctx)

	assert.Equal(t, StateFailed, record.State)
	assert.Equal(t, ErrKindCancelled, record.ErrorKind)
	assert.Zero(t, classifier.calls)
}

func TestSessionIDsAreUnique(t *testing.T) {
	deps := sessionDeps(
		&fakeNormalizer{email: testEmail(nil, nil)},
		&scriptedClassifier{intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3}},
		newFakeDirectory(), nil)

	a := NewSession(RawEmail{ID: "email-1"}, deps)
	b := NewSession(RawEmail{ID: "email-1"}, deps)
	assert.NotEqual(t, a.record.ID, b.record.ID)
}
