package resilience

import (
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/adapter"
	"github.com/salehmehdi/pixel-manager/internal/config"
)

// Options selects and tunes the decorator layers
type Options struct {
	LoggingEnabled bool

	RateLimitEnabled   bool
	RateLimitPerMinute int64

	CircuitBreakerEnabled   bool
	CircuitBreakerThreshold int64
	CircuitBreakerTimeout   time.Duration

	RetryEnabled      bool
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// OptionsFromConfig converts the environment configuration
func OptionsFromConfig(cfg config.Resilience) Options {
	return Options{
		LoggingEnabled:          cfg.LoggingEnabled,
		RateLimitEnabled:        cfg.RateLimitEnabled,
		RateLimitPerMinute:      int64(cfg.RateLimitPerMinute),
		CircuitBreakerEnabled:   cfg.CircuitBreakerEnabled,
		CircuitBreakerThreshold: int64(cfg.CircuitBreakerThreshold),
		CircuitBreakerTimeout:   time.Duration(cfg.CircuitBreakerTimeout) * time.Second,
		RetryEnabled:            cfg.RetryEnabled,
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialDelay:       time.Duration(cfg.RetryInitialDelayMs) * time.Millisecond,
	}
}

// Chain wraps base as Retrying -> CircuitBreaker -> RateLimiting -> Logging -> base.
// Every retry attempt passes through the breaker and the rate limiter again.
func Chain(base adapter.Adapter, store CounterStore, opts Options, log *zap.Logger) adapter.Adapter {
	a := base
	if opts.LoggingEnabled {
		a = NewLoggingAdapter(a, log)
	}
	if opts.RateLimitEnabled && store != nil {
		a = NewRateLimitingAdapter(a, store, opts.RateLimitPerMinute, log)
	}
	if opts.CircuitBreakerEnabled && store != nil {
		a = NewCircuitBreakerAdapter(a, store, opts.CircuitBreakerThreshold, opts.CircuitBreakerTimeout, log)
	}
	if opts.RetryEnabled {
		a = NewRetryingAdapter(a, opts.RetryMaxAttempts, opts.RetryInitialDelay, log)
	}
	return a
}
