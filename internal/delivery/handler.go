package delivery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/telemetry"
)

const DefaultTimeout = 30 * time.Second

// Handler executes delivery tasks pulled from the queue
type Handler struct {
	factory  AdapterFactory
	failures FailureLogger
	metrics  telemetry.Recorder
	timeout  time.Duration
	log      *zap.Logger
}

func NewHandler(factory AdapterFactory, failures FailureLogger, metrics telemetry.Recorder, timeout time.Duration, log *zap.Logger) *Handler {
	if metrics == nil {
		metrics = telemetry.NoopRecorder{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{
		factory:  factory,
		failures: failures,
		metrics:  metrics,
		timeout:  timeout,
		log:      log,
	}
}

// Handle delivers one task. Failed sends return *RetryableError, broken tasks *PermanentError.
func (h *Handler) Handle(ctx context.Context, task *domain.DeliveryTask) error {
	event, err := task.DecodeEvent()
	if err != nil {
		return &PermanentError{Err: err}
	}
	creds, err := task.DecodeCredentials()
	if err != nil {
		return &PermanentError{Err: err}
	}
	a, err := h.factory.Create(task.Platform)
	if err != nil {
		return &PermanentError{Err: err}
	}

	fields := []zap.Field{
		zap.String("platform", task.Platform.String()),
		zap.String("app_id", task.AppID),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type.String()),
	}

	if _, mapped := a.MapEventName(event.Type); !a.Supports(event.Type) || !mapped {
		h.log.Info("Event type not supported by platform, skipping", fields...)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	result := a.Send(sendCtx, event, creds)
	elapsed := time.Since(start)
	h.metrics.RecordDelivery(ctx, task.Platform, result.Success, elapsed)

	if !result.Success {
		return &RetryableError{Platform: task.Platform, Reason: result.Error}
	}

	h.log.Info("Event delivered", append(fields, zap.Int64("duration_ms", elapsed.Milliseconds()))...)
	return nil
}

// Fail records a task that will not be attempted again
func (h *Handler) Fail(ctx context.Context, task *domain.DeliveryTask, cause error, attempts int) {
	failure := domain.DeliveryFailure{
		Platform: task.Platform,
		AppID:    task.AppID,
		EventID:  task.EventID,
		Error:    cause.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	if event, err := task.DecodeEvent(); err == nil {
		failure.EventType = event.Type
	}

	h.log.Error("Delivery task failed permanently",
		zap.String("platform", failure.Platform.String()),
		zap.String("app_id", failure.AppID),
		zap.String("event_id", failure.EventID),
		zap.String("event_type", failure.EventType.String()),
		zap.Int("attempts", attempts),
		zap.Error(cause))

	if h.failures == nil {
		return
	}
	if err := h.failures.LogFailure(ctx, failure); err != nil {
		h.log.Error("Failed to record delivery failure",
			zap.String("event_id", failure.EventID),
			zap.Error(err))
	}
}
