package repository

import (
	"context"
	"time"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// CredentialsRepository stores one credentials record per application
type CredentialsRepository interface {
	// FindByApplication returns nil without error when the application has no record
	FindByApplication(ctx context.Context, appID string) (*domain.ApplicationCredentials, error)

	// Save replaces the whole record for the application
	Save(ctx context.Context, creds *domain.ApplicationCredentials) error

	// Delete removes the record; deleting a missing record is not an error
	Delete(ctx context.Context, appID string) error
}

// StatsQuery bounds a statistics query to a creation time range
type StatsQuery struct {
	From time.Time
	To   time.Time
}

// CountResult is a count keyed by a platform or event type
type CountResult struct {
	Key   string
	Count uint64
}

// RevenueResult is the summed event value for one currency
type RevenueResult struct {
	Currency string
	Total    float64
	Count    uint64
}

// StatsResult aggregates every statistic for a time range
type StatsResult struct {
	TotalEvents uint64
	ByPlatform  []CountResult
	ByEventType []CountResult
	Revenue     []RevenueResult
}

// EventLogRepository is the append-only audit log of distributed events and permanent failures
type EventLogRepository interface {
	// Log records a distributed event with the destinations it was sent to
	Log(ctx context.Context, event *domain.Event, destinations []domain.Platform) error

	// LogFailure records a delivery task that exhausted its retries
	LogFailure(ctx context.Context, failure domain.DeliveryFailure) error

	CountByDateRange(ctx context.Context, query StatsQuery) (uint64, error)
	StatsByPlatform(ctx context.Context, query StatsQuery) ([]CountResult, error)
	StatsByEventType(ctx context.Context, query StatsQuery) ([]CountResult, error)
	RevenueByCurrency(ctx context.Context, query StatsQuery) ([]RevenueResult, error)

	// Stats runs every statistics query for the range
	Stats(ctx context.Context, query StatsQuery) (*StatsResult, error)

	// InitSchema creates the tables if they don't exist
	InitSchema(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}
