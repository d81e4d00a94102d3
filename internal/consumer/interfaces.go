package consumer

import (
	"context"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into delivery tasks
type MessageParser interface {
	Parse(body []byte) (*domain.DeliveryTask, error)
}

// FailureSink records tasks that will not be attempted again
type FailureSink interface {
	Fail(ctx context.Context, task *domain.DeliveryTask, cause error, attempts int)
}

// TaskHandler executes delivery tasks and records the ones that will not be retried
type TaskHandler interface {
	FailureSink
	Handle(ctx context.Context, task *domain.DeliveryTask) error
}
