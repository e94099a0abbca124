package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
	"github.com/jwalitptl/farewatch-api/pkg/metrics"
)

var testMetrics = metrics.New("dispatcher_test")

type markFailedCall struct {
	id      uuid.UUID
	sendErr string
	retryAt *time.Time
}

type fakeQueue struct {
	pending []*model.QueuedMessage
	sent    []uuid.UUID
	failed  []markFailedCall
}

func (q *fakeQueue) Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQueue) ClaimPending(ctx context.Context, limit int) ([]*model.QueuedMessage, error) {
	if limit < len(q.pending) {
		return q.pending[:limit], nil
	}
	return q.pending, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id uuid.UUID) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id uuid.UUID, sendErr string, retryAt *time.Time) error {
	q.failed = append(q.failed, markFailedCall{id, sendErr, retryAt})
	return nil
}

func (q *fakeQueue) MarkOpened(ctx context.Context, id uuid.UUID) error  { return nil }
func (q *fakeQueue) MarkClicked(ctx context.Context, id uuid.UUID) error { return nil }
func (q *fakeQueue) PendingCount(ctx context.Context) (int, error)       { return len(q.pending), nil }
func (q *fakeQueue) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeEmailService struct {
	sendErr error
	sent    []uuid.UUID
}

func (s *fakeEmailService) SendPriceAlert(ctx context.Context, msg *model.QueuedMessage) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg.ID)
	return nil
}

func (s *fakeEmailService) SendCustom(ctx context.Context, to, subject, htmlBody string) error {
	return s.sendErr
}

func testConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:    10,
		PollInterval: time.Minute,
		MaxRetries:   3,
		RetryDelay:   time.Minute,
	}
}

func queuedMessage(emailType string, retryCount int) *model.QueuedMessage {
	return &model.QueuedMessage{
		ID:         uuid.New(),
		EmailType:  emailType,
		Recipient:  "traveler@example.com",
		Status:     model.QueueStatusPending,
		RetryCount: retryCount,
	}
}

func TestProcessBatchMarksSent(t *testing.T) {
	queue := &fakeQueue{pending: []*model.QueuedMessage{
		queuedMessage(model.EmailTypePriceAlert, 0),
		queuedMessage(model.EmailTypePriceAlert, 0),
	}}
	emailSvc := &fakeEmailService{}
	d := NewDispatcher(queue, emailSvc, testConfig(), logger.NewLogger(nil), testMetrics)

	require.NoError(t, d.processBatch(context.Background()))
	assert.Len(t, emailSvc.sent, 2)
	assert.Len(t, queue.sent, 2)
	assert.Empty(t, queue.failed)
}

func TestDispatchFailureSchedulesRetry(t *testing.T) {
	msg := queuedMessage(model.EmailTypePriceAlert, 0)
	queue := &fakeQueue{pending: []*model.QueuedMessage{msg}}
	emailSvc := &fakeEmailService{sendErr: errors.New("smtp timeout")}
	d := NewDispatcher(queue, emailSvc, testConfig(), logger.NewLogger(nil), testMetrics)

	require.NoError(t, d.processBatch(context.Background()))

	require.Len(t, queue.failed, 1)
	call := queue.failed[0]
	assert.Equal(t, msg.ID, call.id)
	assert.Equal(t, "smtp timeout", call.sendErr)
	require.NotNil(t, call.retryAt, "first failure gets a retry slot")
	assert.WithinDuration(t, time.Now().Add(time.Minute), *call.retryAt, 5*time.Second)
}

func TestDispatchRetryBackoffGrowsLinearly(t *testing.T) {
	msg := queuedMessage(model.EmailTypePriceAlert, 1)
	queue := &fakeQueue{pending: []*model.QueuedMessage{msg}}
	emailSvc := &fakeEmailService{sendErr: errors.New("smtp timeout")}
	d := NewDispatcher(queue, emailSvc, testConfig(), logger.NewLogger(nil), testMetrics)

	require.NoError(t, d.processBatch(context.Background()))

	require.Len(t, queue.failed, 1)
	require.NotNil(t, queue.failed[0].retryAt)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), *queue.failed[0].retryAt, 5*time.Second)
}

func TestDispatchExhaustedRetriesFailsPermanently(t *testing.T) {
	msg := queuedMessage(model.EmailTypePriceAlert, 2)
	queue := &fakeQueue{pending: []*model.QueuedMessage{msg}}
	emailSvc := &fakeEmailService{sendErr: errors.New("mailbox unavailable")}
	d := NewDispatcher(queue, emailSvc, testConfig(), logger.NewLogger(nil), testMetrics)

	require.NoError(t, d.processBatch(context.Background()))

	require.Len(t, queue.failed, 1)
	assert.Nil(t, queue.failed[0].retryAt, "no retry slot once attempts are exhausted")
}

func TestDispatchUnsupportedEmailTypeFails(t *testing.T) {
	msg := queuedMessage("newsletter", 0)
	queue := &fakeQueue{pending: []*model.QueuedMessage{msg}}
	emailSvc := &fakeEmailService{}
	d := NewDispatcher(queue, emailSvc, testConfig(), logger.NewLogger(nil), testMetrics)

	require.NoError(t, d.processBatch(context.Background()))
	assert.Empty(t, emailSvc.sent)
	require.Len(t, queue.failed, 1)
	assert.Contains(t, queue.failed[0].sendErr, "unsupported email type")
}

func TestNewDispatcherRejectsInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewDispatcher(&fakeQueue{}, &fakeEmailService{}, DispatcherConfig{}, logger.NewLogger(nil), testMetrics)
	})
}

func TestStartStopsOnContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 5 * time.Millisecond
	queue := &fakeQueue{}
	d := NewDispatcher(queue, &fakeEmailService{}, cfg, logger.NewLogger(nil), testMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}
}
