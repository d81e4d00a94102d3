package consumer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/delivery"
)

// WorkerPoolConfig configures the worker pool
type WorkerPoolConfig struct {
	Workers     int
	MaxAttempts int
}

// WorkerPool runs delivery tasks concurrently and settles each message
type WorkerPool struct {
	handler TaskHandler
	config  WorkerPoolConfig
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(handler TaskHandler, config WorkerPoolConfig, log *zap.Logger) *WorkerPool {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &WorkerPool{
		handler: handler,
		config:  config,
		log:     log,
	}
}

// Start runs the workers until the input channel closes or ctx is done.
// A task that has started runs to completion even if ctx is cancelled.
func (p *WorkerPool) Start(ctx context.Context, in <-chan *Envelope) {
	var wg sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id, in)
		}(i)
	}
	wg.Wait()
	p.log.Info("Worker pool stopped")
}

func (p *WorkerPool) work(ctx context.Context, id int, in <-chan *Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-in:
			if !ok {
				return
			}
			p.process(context.WithoutCancel(ctx), id, envelope)
		}
	}
}

// process handles one envelope: ack on success, nack while queue attempts remain, otherwise record the failure and ack
func (p *WorkerPool) process(ctx context.Context, id int, envelope *Envelope) {
	task := envelope.Task
	fields := []zap.Field{
		zap.Int("worker", id),
		zap.String("message_id", envelope.MessageID),
		zap.String("platform", task.Platform.String()),
		zap.String("app_id", task.AppID),
		zap.String("event_id", task.EventID),
		zap.Int("attempt", envelope.Attempt),
	}

	err := p.handler.Handle(ctx, task)
	if err == nil {
		p.ack(ctx, envelope, fields)
		return
	}

	if delivery.IsRetryable(err) && envelope.Attempt < p.config.MaxAttempts {
		p.log.Warn("Delivery task failed, will retry", append(fields, zap.Error(err))...)
		if nackErr := envelope.Nack(ctx); nackErr != nil {
			p.log.Error("Failed to nack envelope", append(fields, zap.Error(nackErr))...)
		}
		return
	}

	p.handler.Fail(ctx, task, err, envelope.Attempt)
	p.ack(ctx, envelope, fields)
}

func (p *WorkerPool) ack(ctx context.Context, envelope *Envelope, fields []zap.Field) {
	if err := envelope.Ack(ctx); err != nil {
		p.log.Error("Failed to ack envelope", append(fields, zap.Error(err))...)
	}
}
