package consumer

import (
	"context"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// Envelope wraps a delivery task with acknowledgment callbacks
type Envelope struct {
	Task      *domain.DeliveryTask
	MessageID string
	// Attempt is the 1-based number of times the queue has delivered this message
	Attempt int
	ack     func(context.Context) error
	nack    func(context.Context) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(task *domain.DeliveryTask, messageID string, attempt int, ack, nack func(context.Context) error) *Envelope {
	if attempt < 1 {
		attempt = 1
	}
	return &Envelope{
		Task:      task,
		MessageID: messageID,
		Attempt:   attempt,
		ack:       ack,
		nack:      nack,
	}
}

// Ack removes the message from the queue
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack returns the message to the queue after the retry backoff
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}
