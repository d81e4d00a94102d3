package resilience

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/adapter"
	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const rateLimitWindow = 60 * time.Second

// LoggingAdapter logs the outcome and duration of every send
type LoggingAdapter struct {
	adapter.Adapter
	log *zap.Logger
}

func NewLoggingAdapter(inner adapter.Adapter, log *zap.Logger) *LoggingAdapter {
	return &LoggingAdapter{Adapter: inner, log: log}
}

func (a *LoggingAdapter) Send(ctx context.Context, event *domain.Event, creds domain.PlatformCredentials) domain.DeliveryResult {
	start := time.Now()
	result := a.Adapter.Send(ctx, event, creds)

	fields := []zap.Field{
		zap.String("platform", a.Platform().String()),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type.String()),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if result.Success {
		a.log.Debug("Event delivered", fields...)
	} else {
		a.log.Warn("Event delivery failed", append(fields, zap.String("error", result.Error))...)
	}
	return result
}

// RateLimitingAdapter caps sends per platform within a fixed 60 second window
type RateLimitingAdapter struct {
	adapter.Adapter
	store        CounterStore
	maxPerMinute int64
	log          *zap.Logger
}

func NewRateLimitingAdapter(inner adapter.Adapter, store CounterStore, maxPerMinute int64, log *zap.Logger) *RateLimitingAdapter {
	return &RateLimitingAdapter{
		Adapter:      inner,
		store:        store,
		maxPerMinute: maxPerMinute,
		log:          log,
	}
}

// RateLimitKey is the counter key of a platform's current window
func RateLimitKey(p domain.Platform) string {
	return "rate_limit:" + p.String()
}

func (a *RateLimitingAdapter) Send(ctx context.Context, event *domain.Event, creds domain.PlatformCredentials) domain.DeliveryResult {
	key := RateLimitKey(a.Platform())

	// increment first: the returned count is this call's slot in the window
	count, err := a.store.Incr(ctx, key, rateLimitWindow, false)
	if err != nil {
		a.log.Warn("Rate limit store unavailable, allowing request",
			zap.String("platform", a.Platform().String()),
			zap.Error(err))
		return a.Adapter.Send(ctx, event, creds)
	}
	if count > a.maxPerMinute {
		return domain.FailureResult(fmt.Sprintf("Rate limit exceeded for %s (%d/min)", a.Platform(), a.maxPerMinute), nil)
	}
	return a.Adapter.Send(ctx, event, creds)
}

// CircuitBreakerAdapter stops calling a platform once its failure count reaches the threshold.
// The circuit closes again when the failure counter expires or a call succeeds.
type CircuitBreakerAdapter struct {
	adapter.Adapter
	store     CounterStore
	threshold int64
	timeout   time.Duration
	log       *zap.Logger
}

func NewCircuitBreakerAdapter(inner adapter.Adapter, store CounterStore, threshold int64, timeout time.Duration, log *zap.Logger) *CircuitBreakerAdapter {
	return &CircuitBreakerAdapter{
		Adapter:   inner,
		store:     store,
		threshold: threshold,
		timeout:   timeout,
		log:       log,
	}
}

// CircuitBreakerKey is the failure counter key of a platform
func CircuitBreakerKey(p domain.Platform) string {
	return "circuit_breaker:" + p.String() + ":failures"
}

func (a *CircuitBreakerAdapter) Send(ctx context.Context, event *domain.Event, creds domain.PlatformCredentials) domain.DeliveryResult {
	key := CircuitBreakerKey(a.Platform())
	platform := zap.String("platform", a.Platform().String())

	failures, err := a.store.Get(ctx, key)
	if err != nil {
		a.log.Warn("Circuit breaker store unavailable, allowing request", platform, zap.Error(err))
	} else if failures >= a.threshold {
		return domain.FailureResult(fmt.Sprintf("Circuit breaker is open for %s", a.Platform()), nil)
	}

	result := a.Adapter.Send(ctx, event, creds)

	if result.Success {
		if err := a.store.Delete(ctx, key); err != nil {
			a.log.Warn("Failed to reset circuit breaker", platform, zap.Error(err))
		}
		return result
	}

	count, err := a.store.Incr(ctx, key, a.timeout, true)
	if err != nil {
		a.log.Warn("Failed to record circuit breaker failure", platform, zap.Error(err))
		return result
	}
	if count == a.threshold {
		a.log.Warn("Circuit breaker opened", platform,
			zap.Int64("failures", count),
			zap.Duration("timeout", a.timeout))
	}
	return result
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryingAdapter re-sends failed deliveries with exponential backoff
type RetryingAdapter struct {
	adapter.Adapter
	maxAttempts  int
	initialDelay time.Duration
	sleep        SleepFunc
	log          *zap.Logger
}

func NewRetryingAdapter(inner adapter.Adapter, maxAttempts int, initialDelay time.Duration, log *zap.Logger) *RetryingAdapter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingAdapter{
		Adapter:      inner,
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		sleep:        sleepContext,
		log:          log,
	}
}

// WithSleep replaces the backoff wait
func (a *RetryingAdapter) WithSleep(sleep SleepFunc) *RetryingAdapter {
	a.sleep = sleep
	return a
}

// Backoff returns the wait before the attempt following the given one
func (a *RetryingAdapter) Backoff(attempt int) time.Duration {
	return a.initialDelay * time.Duration(1<<(attempt-1))
}

func (a *RetryingAdapter) Send(ctx context.Context, event *domain.Event, creds domain.PlatformCredentials) domain.DeliveryResult {
	var result domain.DeliveryResult
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		result = a.Adapter.Send(ctx, event, creds)
		if result.Success || attempt == a.maxAttempts {
			return result
		}

		delay := a.Backoff(attempt)
		a.log.Debug("Retrying event delivery",
			zap.String("platform", a.Platform().String()),
			zap.String("event_id", event.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", result.Error))

		if err := a.sleep(ctx, delay); err != nil {
			return result
		}
	}
	return result
}
