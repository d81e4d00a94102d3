package distributor

import (
	"context"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// PlatformSelector picks the destinations of an event
type PlatformSelector interface {
	Select(event *domain.Event, creds *domain.ApplicationCredentials) []domain.Platform
}

// AuditLogger appends distributed events to the audit log
type AuditLogger interface {
	Log(ctx context.Context, event *domain.Event, destinations []domain.Platform) error
}
