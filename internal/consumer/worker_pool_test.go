package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/delivery"
	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// MockTaskHandler is a mock implementation of TaskHandler
type MockTaskHandler struct {
	mock.Mock
}

func (m *MockTaskHandler) Handle(ctx context.Context, task *domain.DeliveryTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskHandler) Fail(ctx context.Context, task *domain.DeliveryTask, cause error, attempts int) {
	m.Called(ctx, task, cause, attempts)
}

// settleRecorder counts ack and nack calls of envelopes
type settleRecorder struct {
	mu    sync.Mutex
	acks  int
	nacks int
}

func (r *settleRecorder) envelope(task *domain.DeliveryTask, attempt int) *Envelope {
	return NewEnvelope(task, "msg-"+task.EventID, attempt,
		func(context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.acks++
			return nil
		},
		func(context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.nacks++
			return nil
		})
}

func runPool(t *testing.T, handler TaskHandler, envelopes ...*Envelope) {
	t.Helper()
	pool := NewWorkerPool(handler, WorkerPoolConfig{Workers: 2, MaxAttempts: 3}, zap.NewNop())

	in := make(chan *Envelope, len(envelopes))
	for _, e := range envelopes {
		in <- e
	}
	close(in)

	done := make(chan struct{})
	go func() {
		pool.Start(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker pool did not stop")
	}
}

func TestWorkerPool_SuccessAcks(t *testing.T) {
	handler := new(MockTaskHandler)
	task := &domain.DeliveryTask{Platform: domain.PlatformMeta, EventID: "1"}
	handler.On("Handle", mock.Anything, task).Return(nil)

	rec := &settleRecorder{}
	runPool(t, handler, rec.envelope(task, 1))

	assert.Equal(t, 1, rec.acks)
	assert.Equal(t, 0, rec.nacks)
	handler.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkerPool_RetryableFailureNacksUntilLastAttempt(t *testing.T) {
	handler := new(MockTaskHandler)
	task := &domain.DeliveryTask{Platform: domain.PlatformMeta, EventID: "1"}
	retryable := &delivery.RetryableError{Platform: domain.PlatformMeta, Reason: "HTTP 500: boom"}
	handler.On("Handle", mock.Anything, task).Return(retryable)

	rec := &settleRecorder{}
	runPool(t, handler, rec.envelope(task, 2))

	assert.Equal(t, 0, rec.acks)
	assert.Equal(t, 1, rec.nacks)
	handler.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkerPool_ExhaustedAttemptsRecordFailure(t *testing.T) {
	handler := new(MockTaskHandler)
	task := &domain.DeliveryTask{Platform: domain.PlatformMeta, EventID: "1"}
	retryable := &delivery.RetryableError{Platform: domain.PlatformMeta, Reason: "HTTP 500: boom"}
	handler.On("Handle", mock.Anything, task).Return(retryable)
	handler.On("Fail", mock.Anything, task, retryable, 3).Return()

	rec := &settleRecorder{}
	runPool(t, handler, rec.envelope(task, 3))

	assert.Equal(t, 1, rec.acks)
	assert.Equal(t, 0, rec.nacks)
	handler.AssertExpectations(t)
}

func TestWorkerPool_PermanentErrorNotRetried(t *testing.T) {
	handler := new(MockTaskHandler)
	task := &domain.DeliveryTask{Platform: domain.PlatformMeta, EventID: "1"}
	permanent := &delivery.PermanentError{Err: errors.New("failed to decode event")}
	handler.On("Handle", mock.Anything, task).Return(permanent)
	handler.On("Fail", mock.Anything, task, permanent, 1).Return()

	rec := &settleRecorder{}
	runPool(t, handler, rec.envelope(task, 1))

	assert.Equal(t, 1, rec.acks)
	assert.Equal(t, 0, rec.nacks)
	handler.AssertExpectations(t)
}

func TestWorkerPool_TaskSurvivesShutdown(t *testing.T) {
	handler := new(MockTaskHandler)
	task := &domain.DeliveryTask{Platform: domain.PlatformMeta, EventID: "1"}

	ctx, cancel := context.WithCancel(context.Background())
	var handleErr error
	handler.On("Handle", mock.Anything, task).
		Run(func(args mock.Arguments) {
			cancel()
			handleErr = args.Get(0).(context.Context).Err()
		}).
		Return(nil)

	rec := &settleRecorder{}
	in := make(chan *Envelope, 1)
	in <- rec.envelope(task, 1)

	pool := NewWorkerPool(handler, WorkerPoolConfig{Workers: 1, MaxAttempts: 3}, zap.NewNop())
	pool.Start(ctx, in)

	assert.NoError(t, handleErr, "an in-flight task is not cancelled by shutdown")
	assert.Equal(t, 1, rec.acks)
}
