package consumer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/queue"
)

// ParserStage handles parsing SQS messages into task envelopes
type ParserStage struct {
	consumer     queue.QueueConsumer
	parser       MessageParser
	failures     FailureSink
	retryBackoff int32
	log          *zap.Logger
}

// NewParserStage creates a new parser stage. Nacked messages become visible again after retryBackoffSec;
// malformed messages are reported to failures before they are deleted.
func NewParserStage(consumer queue.QueueConsumer, parser MessageParser, failures FailureSink, retryBackoffSec int32, log *zap.Logger) *ParserStage {
	return &ParserStage{
		consumer:     consumer,
		parser:       parser,
		failures:     failures,
		retryBackoff: retryBackoffSec,
		log:          log,
	}
}

// Start begins parsing messages and outputs envelopes
func (p *ParserStage) Start(ctx context.Context, in <-chan types.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case msg, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			envelope := p.parseMessage(ctx, msg)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
			}
		}
	}
}

// parseMessage parses a single SQS message into an envelope; malformed messages are recorded and deleted
func (p *ParserStage) parseMessage(ctx context.Context, msg types.Message) *Envelope {
	messageID := aws.ToString(msg.MessageId)
	body := []byte(aws.ToString(msg.Body))
	task, err := p.parser.Parse(body)

	if err != nil {
		p.log.Warn("Failed to parse message",
			zap.String("message_id", messageID),
			zap.Error(err))
		if p.failures != nil {
			p.failures.Fail(ctx, partialTask(body), err, receiveCount(msg))
		}
		if err := p.deleteMessage(ctx, msg); err != nil {
			p.log.Error("Failed to delete malformed message",
				zap.String("message_id", messageID),
				zap.Error(err))
		}
		return nil
	}

	ack := func(ctx context.Context) error {
		return p.deleteMessage(ctx, msg)
	}

	nack := func(ctx context.Context) error {
		_, err := p.consumer.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(p.consumer.QueueURL()),
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: p.retryBackoff,
		})
		return err
	}

	return NewEnvelope(task, messageID, receiveCount(msg), ack, nack)
}

// partialTask keeps whatever identifying fields a malformed body still decodes to
func partialTask(body []byte) *domain.DeliveryTask {
	var task domain.DeliveryTask
	if err := json.Unmarshal(body, &task); err != nil {
		return &domain.DeliveryTask{}
	}
	return &task
}

// receiveCount reads the ApproximateReceiveCount system attribute, defaulting to 1
func receiveCount(msg types.Message) int {
	raw, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// deleteMessage deletes a message from SQS
func (p *ParserStage) deleteMessage(ctx context.Context, msg types.Message) error {
	_, err := p.consumer.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.consumer.QueueURL()),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		p.log.Error("Failed to delete message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err))
		return err
	}
	return nil
}
