package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	emails []RawEmail
	err    error
}

func (s *fakeSource) List(_ context.Context) ([]RawEmail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.emails, nil
}

func (s *fakeSource) Get(_ context.Context, id string) (*RawEmail, error) {
	for _, email := range s.emails {
		if email.ID == id {
			copied := email
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func testService(classifier Classifier, dir BusinessDirectory) *TriageService {
	return NewTriageService(
		&fakeNormalizer{email: testEmail([]string{"LC123456"}, nil)},
		classifier,
		dir,
		nil,
		zap.NewNop(),
		ServiceConfig{
			MaxConcurrentSessions: 4,
			ClassifyRetries:       2,
			ClassifyBackoff:       time.Millisecond,
			ToolRetries:           2,
			ToolBackoff:           time.Millisecond,
		},
	)
}

func TestProcessAllKeepsSourceOrder(t *testing.T) {
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3}}
	service := testService(classifier, newFakeDirectory())

	source := &fakeSource{}
	for i := 0; i < 10; i++ {
		source.emails = append(source.emails, RawEmail{ID: fmt.Sprintf("email-%02d", i)})
	}

	records, err := service.ProcessAll(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, records, 10)
	for i, record := range records {
		require.NotNil(t, record)
		assert.Equal(t, fmt.Sprintf("email-%02d", i), record.EmailID)
		assert.Equal(t, StateCompleted, record.State)
	}
}

func TestProcessAllIsolatesFailures(t *testing.T) {
	// Every classification fails; every session must still finish with its
	// own failed record instead of aborting the batch.
	classifier := &scriptedClassifier{
		errs: []error{
			MalformedMessage(fmt.Errorf("bad email")),
			MalformedMessage(fmt.Errorf("bad email")),
			MalformedMessage(fmt.Errorf("bad email")),
		},
		intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3},
	}
	service := testService(classifier, newFakeDirectory())

	source := &fakeSource{emails: []RawEmail{
		{ID: "email-0"}, {ID: "email-1"}, {ID: "email-2"}, {ID: "email-3"},
	}}

	records, err := service.ProcessAll(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, records, 4)

	failed := 0
	for _, record := range records {
		require.NotNil(t, record)
		assert.True(t, record.State.Terminal())
		if record.State == StateFailed {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
}

func TestProcessAllSourceErrorPropagates(t *testing.T) {
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentGeneralInquiry, Confidence: 0.3}}
	service := testService(classifier, newFakeDirectory())

	_, err := service.ProcessAll(context.Background(), &fakeSource{err: fmt.Errorf("disk gone")})
	assert.Error(t, err)
}

func TestProcessByID(t *testing.T) {
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentLogisticsInquiry, Confidence: 0.8}}
	service := testService(classifier, newFakeDirectory())

	source := &fakeSource{emails: []RawEmail{{ID: "email-7"}}}

	record, err := service.ProcessByID(context.Background(), source, "email-7")
	require.NoError(t, err)
	assert.Equal(t, "email-7", record.EmailID)
	assert.Equal(t, StateCompleted, record.State)

	_, err = service.ProcessByID(context.Background(), source, "missing")
	assert.Error(t, err)
}

func TestConcurrentSessionsShareDirectorySafely(t *testing.T) {
	classifier := &scriptedClassifier{intent: &Intent{Kind: IntentOrderCancellation, Confidence: 0.9}}
	dir := newFakeDirectory()
	service := testService(classifier, dir)

	source := &fakeSource{}
	for i := 0; i < 8; i++ {
		source.emails = append(source.emails, RawEmail{ID: fmt.Sprintf("email-%d", i)})
	}

	records, err := service.ProcessAll(context.Background(), source)
	require.NoError(t, err)

	// Every session issued its own idempotency key, so each interception is
	// distinct even though they all target the same order.
	intercepted := 0
	for _, record := range records {
		require.Len(t, record.Results, 2)
		if record.Results[1].Status == ResultOK {
			intercepted++
		}
	}
	assert.Equal(t, 8, intercepted)
	assert.Len(t, dir.interceptions, 8)
}
