package adapter

import (
	"context"
	"net/http"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// Adapter delivers canonical events to one destination platform.
// Send never returns an error: every failure is reported through the DeliveryResult.
type Adapter interface {
	Platform() domain.Platform
	Supports(eventType domain.EventType) bool
	MapEventName(eventType domain.EventType) (string, bool)
	Send(ctx context.Context, event *domain.Event, creds domain.PlatformCredentials) domain.DeliveryResult
}

// HTTPDoer is satisfied by *http.Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
