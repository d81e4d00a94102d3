package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/dto"
	"github.com/salehmehdi/pixel-manager/internal/repository"
)

const (
	StatusAccepted = "accepted"
	StatusPartial  = "partial"
	StatusIgnored  = "ignored"

	DefaultBulkMaxEvents = 100
	defaultStatsRange    = 7 * 24 * time.Hour
)

// TrackResult reports the outcome of tracking one event
type TrackResult struct {
	EventID      string
	Destinations []domain.Platform
	Status       string
}

// EventServiceOptions configures the event service
type EventServiceOptions struct {
	// BotDetectionEnabled drops events whose user agent looks automated
	BotDetectionEnabled bool
	BulkMaxEvents       int
}

// EventService represents event service
type EventService struct {
	normalizer  EventNormalizer
	distributor EventDistributor
	bots        BotDetector
	stats       StatsReader
	opts        EventServiceOptions
	now         func() time.Time
	log         *zap.Logger
}

// NewEventService creates a new event service
func NewEventService(
	normalizer EventNormalizer,
	distributor EventDistributor,
	bots BotDetector,
	stats StatsReader,
	opts EventServiceOptions,
	log *zap.Logger,
) *EventService {
	if opts.BulkMaxEvents <= 0 {
		opts.BulkMaxEvents = DefaultBulkMaxEvents
	}
	return &EventService{
		normalizer:  normalizer,
		distributor: distributor,
		bots:        bots,
		stats:       stats,
		opts:        opts,
		now:         time.Now,
		log:         log,
	}
}

// TrackEvent normalizes a raw payload and queues it for its destinations.
// A payload wrapped in a "data" object is unwrapped first.
func (s *EventService) TrackEvent(ctx context.Context, appID string, raw map[string]any) (*TrackResult, error) {
	raw = unwrapData(raw)

	event, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.log.Warn("Event validation failed",
			zap.String("app_id", appID),
			zap.Error(err))
		return nil, err
	}

	if s.opts.BotDetectionEnabled && s.bots != nil {
		if ua := userAgent(raw); s.bots.IsBot(ua) {
			s.log.Debug("Bot detected, skipping event tracking",
				zap.String("app_id", appID),
				zap.String("user_agent", ua))
			return &TrackResult{Status: StatusIgnored}, nil
		}
	}

	destinations, err := s.distributor.Distribute(ctx, event, appID)
	if err != nil {
		if len(destinations) == 0 {
			return nil, fmt.Errorf("failed to distribute event: %w", err)
		}
		s.log.Warn("Event partially distributed",
			zap.String("app_id", appID),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return &TrackResult{EventID: event.ID, Destinations: destinations, Status: StatusPartial}, nil
	}

	return &TrackResult{EventID: event.ID, Destinations: destinations, Status: StatusAccepted}, nil
}

// TrackBulk tracks every payload independently; a failed item does not abort the rest
func (s *EventService) TrackBulk(ctx context.Context, appID string, raws []map[string]any) (*dto.BulkTrackResponse, error) {
	if len(raws) > s.opts.BulkMaxEvents {
		return nil, &domain.FieldError{
			Field:  "events",
			Reason: fmt.Sprintf("at most %d events per request", s.opts.BulkMaxEvents),
		}
	}

	response := &dto.BulkTrackResponse{}
	for i, raw := range raws {
		result, err := s.TrackEvent(ctx, appID, raw)
		if err != nil {
			s.log.Warn("Failed to track event in bulk",
				zap.Int("index", i),
				zap.String("app_id", appID),
				zap.Error(err))
			response.Rejected++
			response.Errors = append(response.Errors, dto.BulkItemError{Index: i, Message: err.Error()})
			continue
		}
		response.Accepted++
		response.Results = append(response.Results, result.Response())
	}
	return response, nil
}

// GetStats retrieves audit log statistics. A zero bound defaults to the last seven days.
func (s *EventService) GetStats(ctx context.Context, from, to time.Time) (*dto.StatsResponse, error) {
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultStatsRange)
	}
	if from.After(to) {
		s.log.Warn("Invalid time range for stats",
			zap.Time("from", from),
			zap.Time("to", to))
		return nil, &domain.FieldError{Field: "from", Reason: "must not be after to"}
	}

	result, err := s.stats.Stats(ctx, repository.StatsQuery{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to get stats from repository: %w", err)
	}

	response := &dto.StatsResponse{
		From:        from,
		To:          to,
		TotalEvents: result.TotalEvents,
		ByPlatform:  countEntries(result.ByPlatform),
		ByEventType: countEntries(result.ByEventType),
		Revenue:     make([]dto.RevenueEntry, 0, len(result.Revenue)),
	}
	for _, r := range result.Revenue {
		response.Revenue = append(response.Revenue, dto.RevenueEntry{
			Currency: r.Currency,
			Total:    r.Total,
			Count:    r.Count,
		})
	}
	return response, nil
}

// Response converts the result into its wire form
func (r *TrackResult) Response() dto.TrackEventResponse {
	names := make([]string, len(r.Destinations))
	for i, p := range r.Destinations {
		names[i] = p.String()
	}
	return dto.TrackEventResponse{
		EventID:      r.EventID,
		Status:       r.Status,
		Destinations: names,
	}
}

func countEntries(results []repository.CountResult) []dto.CountEntry {
	entries := make([]dto.CountEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, dto.CountEntry{Key: r.Key, Count: r.Count})
	}
	return entries
}

func unwrapData(raw map[string]any) map[string]any {
	if data, ok := raw["data"].(map[string]any); ok {
		if _, hasType := raw["event_type"]; !hasType {
			return data
		}
	}
	return raw
}

func userAgent(raw map[string]any) string {
	if customer, ok := raw["customer"].(map[string]any); ok {
		for _, key := range []string{"user_agent", "client_user_agent"} {
			if ua, ok := customer[key].(string); ok && ua != "" {
				return ua
			}
		}
	}
	ua, _ := raw["user_agent"].(string)
	return ua
}
