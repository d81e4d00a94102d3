package delivery

import (
	"context"

	"github.com/salehmehdi/pixel-manager/internal/adapter"
	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// AdapterFactory builds the decorated adapter of a platform
type AdapterFactory interface {
	Create(platform domain.Platform) (adapter.Adapter, error)
}

// FailureLogger records deliveries that exhausted their queue retries
type FailureLogger interface {
	LogFailure(ctx context.Context, failure domain.DeliveryFailure) error
}
