package distributor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/queue"
	"github.com/salehmehdi/pixel-manager/internal/repository"
	"github.com/salehmehdi/pixel-manager/internal/telemetry"
)

const DefaultAuditTimeout = 5 * time.Second

// Options configures the distributor
type Options struct {
	// LoggingEnabled writes an audit record per distributed event
	LoggingEnabled bool
	AuditTimeout   time.Duration
}

// Distributor turns a canonical event into one queued delivery task per selected platform
type Distributor struct {
	credentials repository.CredentialsRepository
	selector    PlatformSelector
	publisher   queue.TaskPublisher
	audit       AuditLogger
	metrics     telemetry.Recorder
	opts        Options
	log         *zap.Logger

	wg sync.WaitGroup
}

func NewDistributor(
	credentials repository.CredentialsRepository,
	selector PlatformSelector,
	publisher queue.TaskPublisher,
	audit AuditLogger,
	metrics telemetry.Recorder,
	opts Options,
	log *zap.Logger,
) *Distributor {
	if metrics == nil {
		metrics = telemetry.NoopRecorder{}
	}
	if opts.AuditTimeout <= 0 {
		opts.AuditTimeout = DefaultAuditTimeout
	}
	return &Distributor{
		credentials: credentials,
		selector:    selector,
		publisher:   publisher,
		audit:       audit,
		metrics:     metrics,
		opts:        opts,
		log:         log,
	}
}

// Distribute enqueues the event for every selected platform and returns the platforms it was queued for.
// A tenant without credentials or without eligible platforms is not an error.
// Enqueue failures do not stop the remaining platforms; the first one is returned.
func (d *Distributor) Distribute(ctx context.Context, event *domain.Event, appID string) ([]domain.Platform, error) {
	creds, err := d.credentials.FindByApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil || creds.IsEmpty() {
		d.log.Warn("No credentials found for application", zap.String("app_id", appID))
		return nil, nil
	}

	platforms := d.selector.Select(event, creds)
	if len(platforms) == 0 {
		d.log.Info("No platforms selected for event",
			zap.String("app_id", appID),
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type.String()))
		return nil, nil
	}

	if d.opts.LoggingEnabled && d.audit != nil {
		d.logAsync(event, platforms)
	}

	var errs []error
	queued := make([]domain.Platform, 0, len(platforms))
	for _, p := range platforms {
		platformCreds, ok := creds.CredentialsFor(p)
		if !ok || !platformCreds.Valid() {
			continue
		}

		task, err := domain.NewDeliveryTask(event, platformCreds, appID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := d.publisher.PublishTask(ctx, task); err != nil {
			d.log.Error("Failed to enqueue delivery task",
				zap.String("app_id", appID),
				zap.String("event_id", event.ID),
				zap.String("platform", p.String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to enqueue %s: %w", p, err))
			continue
		}
		queued = append(queued, p)
	}

	d.metrics.RecordDistributed(ctx, event.Type, len(queued))
	d.log.Info("Event distributed",
		zap.String("app_id", appID),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type.String()),
		zap.Strings("platforms", platformNames(queued)))

	if len(errs) > 0 {
		return queued, errs[0]
	}
	return queued, nil
}

// logAsync writes the audit record without holding up delivery
func (d *Distributor) logAsync(event *domain.Event, platforms []domain.Platform) {
	destinations := append([]domain.Platform(nil), platforms...)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.AuditTimeout)
		defer cancel()

		if err := d.audit.Log(ctx, event, destinations); err != nil {
			level := zap.ErrorLevel
			if errors.Is(err, context.DeadlineExceeded) {
				level = zap.WarnLevel
			}
			d.log.Log(level, "Failed to write event audit log",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until pending audit writes finish
func (d *Distributor) Wait() {
	d.wg.Wait()
}

func platformNames(platforms []domain.Platform) []string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = p.String()
	}
	return names
}
