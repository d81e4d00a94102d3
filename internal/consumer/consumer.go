package consumer

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/config"
	"github.com/salehmehdi/pixel-manager/internal/queue"
)

const defaultBufferSize = 100

// Consumer orchestrates a pipeline of stages to process delivery tasks from SQS
type Consumer struct {
	receiver *Receiver
	parser   *ParserStage
	workers  *WorkerPool
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, handler TaskHandler, log *zap.Logger) *Consumer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:     cfg.Consumer.MaxMessages,
		WaitTimeSeconds: cfg.Consumer.WaitTimeSec,
		BufferSize:      cfg.Consumer.BufferSize,
	}, log)

	parser := NewParserStage(queueConsumer, NewJSONTaskParser(), handler, cfg.Consumer.RetryBackoffSec, log)

	workers := NewWorkerPool(handler, WorkerPoolConfig{
		Workers:     cfg.Consumer.Workers,
		MaxAttempts: cfg.Consumer.MaxAttempts,
	}, log)

	return &Consumer{
		receiver: receiver,
		parser:   parser,
		workers:  workers,
	}
}

// Start runs the pipeline and blocks until every stage has stopped
func (c *Consumer) Start(ctx context.Context) error {
	bufferSize := c.receiver.BufferSize()
	messageChan := make(chan types.Message, bufferSize)
	envelopeChan := make(chan *Envelope, bufferSize)

	var wg sync.WaitGroup
	wg.Add(3)

	// Stage 1: Receive messages from SQS
	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	// Stage 2: Parse messages into task envelopes
	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, envelopeChan)
	}()

	// Stage 3: Deliver tasks
	go func() {
		defer wg.Done()
		c.workers.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
