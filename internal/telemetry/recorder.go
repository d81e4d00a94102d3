package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const meterName = "pixel-manager"

// Recorder records delivery metrics
type Recorder interface {
	RecordDelivery(ctx context.Context, platform domain.Platform, success bool, duration time.Duration)
	RecordDistributed(ctx context.Context, eventType domain.EventType, destinations int)
}

type otelRecorder struct {
	deliveries  metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
	distributed metric.Int64Counter
}

// NewRecorder creates a Recorder on the given meter
func NewRecorder(meter metric.Meter) (Recorder, error) {
	deliveries, err := meter.Int64Counter("pixel_manager.deliveries",
		metric.WithDescription("Number of delivery attempts per platform"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("pixel_manager.delivery_failures",
		metric.WithDescription("Number of failed deliveries per platform"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("pixel_manager.delivery.latency_ms",
		metric.WithDescription("Delivery latency in milliseconds, including in-process retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	distributed, err := meter.Int64Counter("pixel_manager.events.distributed",
		metric.WithDescription("Number of distributed events per event type"),
	)
	if err != nil {
		return nil, err
	}

	return &otelRecorder{
		deliveries:  deliveries,
		failures:    failures,
		latency:     latency,
		distributed: distributed,
	}, nil
}

// NewGlobalRecorder uses the global meter provider and falls back to a no-op recorder
func NewGlobalRecorder(log *zap.Logger) Recorder {
	r, err := NewRecorder(otel.Meter(meterName))
	if err != nil {
		log.Warn("Metrics initialization failed, using no-op recorder", zap.Error(err))
		return NoopRecorder{}
	}
	return r
}

func (r *otelRecorder) RecordDelivery(ctx context.Context, platform domain.Platform, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("platform", platform.String()),
		attribute.Bool("success", success),
	)
	r.deliveries.Add(ctx, 1, attrs)
	r.latency.Record(ctx, float64(duration.Milliseconds()), attrs)

	if !success {
		r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("platform", platform.String())))
	}
}

func (r *otelRecorder) RecordDistributed(ctx context.Context, eventType domain.EventType, destinations int) {
	r.distributed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType.String()),
		attribute.Int("destinations", destinations),
	))
}

// NoopRecorder discards all metrics
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) RecordDelivery(context.Context, domain.Platform, bool, time.Duration) {}

func (NoopRecorder) RecordDistributed(context.Context, domain.EventType, int) {}
