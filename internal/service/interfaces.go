package service

import (
	"context"
	"time"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/dto"
	"github.com/salehmehdi/pixel-manager/internal/repository"
)

// EventServicer defines the interface for event tracking operations
type EventServicer interface {
	TrackEvent(ctx context.Context, appID string, raw map[string]any) (*TrackResult, error)
	TrackBulk(ctx context.Context, appID string, raws []map[string]any) (*dto.BulkTrackResponse, error)
	GetStats(ctx context.Context, from, to time.Time) (*dto.StatsResponse, error)
}

// CredentialsServicer defines the interface for credentials administration
type CredentialsServicer interface {
	Get(ctx context.Context, appID string) (*dto.CredentialsResponse, error)
	SavePlatform(ctx context.Context, appID string, platform domain.Platform, fields map[string]string) error
	RemovePlatform(ctx context.Context, appID string, platform domain.Platform) error
	Delete(ctx context.Context, appID string) error
}

// EventNormalizer builds canonical events from raw payloads
type EventNormalizer interface {
	Normalize(raw map[string]any) (*domain.Event, error)
}

// EventDistributor queues an event for its destinations
type EventDistributor interface {
	Distribute(ctx context.Context, event *domain.Event, appID string) ([]domain.Platform, error)
}

// BotDetector flags automated user agents
type BotDetector interface {
	IsBot(userAgent string) bool
}

// StatsReader reads audit log statistics
type StatsReader interface {
	Stats(ctx context.Context, query repository.StatsQuery) (*repository.StatsResult, error)
}
