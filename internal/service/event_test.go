package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/distributor"
	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/normalizer"
	"github.com/salehmehdi/pixel-manager/internal/repository"
	"github.com/salehmehdi/pixel-manager/internal/security"
	"github.com/salehmehdi/pixel-manager/internal/selector"
)

// MockEventDistributor is a mock implementation of EventDistributor
type MockEventDistributor struct {
	mock.Mock
}

func (m *MockEventDistributor) Distribute(ctx context.Context, event *domain.Event, appID string) ([]domain.Platform, error) {
	args := m.Called(ctx, event, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Platform), args.Error(1)
}

// MockStatsReader is a mock implementation of StatsReader
type MockStatsReader struct {
	mock.Mock
}

func (m *MockStatsReader) Stats(ctx context.Context, query repository.StatsQuery) (*repository.StatsResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.StatsResult), args.Error(1)
}

// MockTaskPublisher is a mock implementation of queue.TaskPublisher
type MockTaskPublisher struct {
	mock.Mock
}

func (m *MockTaskPublisher) PublishTask(ctx context.Context, task *domain.DeliveryTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockAuditLogger is a mock implementation of distributor.AuditLogger
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Log(ctx context.Context, event *domain.Event, destinations []domain.Platform) error {
	args := m.Called(ctx, event, destinations)
	return args.Error(0)
}

func newTestEventService(dist EventDistributor, stats StatsReader, opts EventServiceOptions) *EventService {
	return NewEventService(normalizer.New(), dist, security.NewBotDetector(), stats, opts, zap.NewNop())
}

func purchasePayload() map[string]any {
	return map[string]any{
		"event_type": "purchase",
		"value":      99.99,
		"currency":   "USD",
		"customer":   map[string]any{"email": "a@b.com"},
	}
}

func TestEventService_TrackEvent_Success(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{})

	dist.On("Distribute", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.Type == domain.EventTypePurchase && e.Value != nil && e.Value.Amount == 99.99
	}), "40").Return([]domain.Platform{domain.PlatformMeta, domain.PlatformGoogle}, nil)

	result, err := service.TrackEvent(context.Background(), "40", purchasePayload())

	require.NoError(t, err)
	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, []domain.Platform{domain.PlatformMeta, domain.PlatformGoogle}, result.Destinations)
	assert.Equal(t, []string{"meta", "google"}, result.Response().Destinations)
	dist.AssertExpectations(t)
}

func TestEventService_TrackEvent_UnwrapsData(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{})

	dist.On("Distribute", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.Type == domain.EventTypeAddToCart
	}), "40").Return([]domain.Platform{}, nil)

	result, err := service.TrackEvent(context.Background(), "40", map[string]any{
		"data": map[string]any{"event_type": "add_to_cart"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, result.Status)
	assert.Empty(t, result.Destinations)
}

func TestEventService_TrackEvent_InvalidType(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{})

	result, err := service.TrackEvent(context.Background(), "40", map[string]any{"event_type": "foo"})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, domain.ErrInvalidEventType))
	assert.True(t, IsValidationError(err))
	dist.AssertNotCalled(t, "Distribute", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventService_TrackEvent_InvalidTypeQueuesNothing(t *testing.T) {
	creds := new(MockCredentialsRepository)
	publisher := new(MockTaskPublisher)
	audit := new(MockAuditLogger)

	d := distributor.NewDistributor(creds, selector.New(nil), publisher, audit, nil,
		distributor.Options{LoggingEnabled: true}, zap.NewNop())
	service := newTestEventService(d, nil, EventServiceOptions{})

	_, err := service.TrackEvent(context.Background(), "40", map[string]any{
		"event_type": "foo",
		"value":      10,
		"currency":   "USD",
	})
	d.Wait()

	assert.True(t, errors.Is(err, domain.ErrInvalidEventType))
	creds.AssertNotCalled(t, "FindByApplication", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishTask", mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventService_TrackEvent_PurchaseFansOut(t *testing.T) {
	creds := new(MockCredentialsRepository)
	publisher := new(MockTaskPublisher)
	audit := new(MockAuditLogger)

	appCreds := domain.NewApplicationCredentials("40")
	appCreds.Set(domain.MetaCredentials{PixelID: "p", AccessToken: "t"})
	appCreds.Set(domain.GoogleCredentials{MeasurementID: "G-1", APISecret: "s"})
	creds.On("FindByApplication", mock.Anything, "40").Return(appCreds, nil)

	var tasks []*domain.DeliveryTask
	publisher.On("PublishTask", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { tasks = append(tasks, args.Get(1).(*domain.DeliveryTask)) }).
		Return(nil)
	audit.On("Log", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := distributor.NewDistributor(creds, selector.New(nil), publisher, audit, nil,
		distributor.Options{LoggingEnabled: true}, zap.NewNop())
	service := newTestEventService(d, nil, EventServiceOptions{})

	result, err := service.TrackEvent(context.Background(), "40", purchasePayload())
	d.Wait()

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.PlatformMeta, tasks[0].Platform)
	assert.Equal(t, domain.PlatformGoogle, tasks[1].Platform)
	assert.Equal(t, result.EventID, tasks[0].EventID)
	assert.Equal(t, result.EventID, tasks[1].EventID)
	audit.AssertNumberOfCalls(t, "Log", 1)
}

func TestEventService_TrackEvent_BotIgnored(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{BotDetectionEnabled: true})

	raw := purchasePayload()
	raw["customer"] = map[string]any{"user_agent": "Mozilla/5.0 (compatible; Googlebot/2.1)"}

	result, err := service.TrackEvent(context.Background(), "40", raw)

	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, result.Status)
	assert.Empty(t, result.EventID)
	dist.AssertNotCalled(t, "Distribute", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventService_TrackEvent_BotWithInvalidPayloadRejected(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{BotDetectionEnabled: true})

	raw := purchasePayload()
	raw["event_type"] = "foo"
	raw["customer"] = map[string]any{"user_agent": "Mozilla/5.0 (compatible; Googlebot/2.1)"}

	result, err := service.TrackEvent(context.Background(), "40", raw)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsValidationError(err))
	dist.AssertNotCalled(t, "Distribute", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventService_TrackEvent_BotDetectionDisabled(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{})

	raw := purchasePayload()
	raw["customer"] = map[string]any{"user_agent": "Googlebot"}
	dist.On("Distribute", mock.Anything, mock.Anything, "40").Return([]domain.Platform{domain.PlatformMeta}, nil)

	result, err := service.TrackEvent(context.Background(), "40", raw)

	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, result.Status)
}

func TestEventService_TrackEvent_DistributeErrors(t *testing.T) {
	t.Run("nothing queued", func(t *testing.T) {
		dist := new(MockEventDistributor)
		service := newTestEventService(dist, nil, EventServiceOptions{})
		dist.On("Distribute", mock.Anything, mock.Anything, "40").Return(nil, errors.New("db down"))

		result, err := service.TrackEvent(context.Background(), "40", purchasePayload())

		assert.Nil(t, result)
		assert.Error(t, err)
		assert.False(t, IsValidationError(err))
	})

	t.Run("partially queued", func(t *testing.T) {
		dist := new(MockEventDistributor)
		service := newTestEventService(dist, nil, EventServiceOptions{})
		dist.On("Distribute", mock.Anything, mock.Anything, "40").
			Return([]domain.Platform{domain.PlatformGoogle}, errors.New("failed to enqueue meta"))

		result, err := service.TrackEvent(context.Background(), "40", purchasePayload())

		require.NoError(t, err)
		assert.Equal(t, StatusPartial, result.Status)
		assert.Equal(t, []domain.Platform{domain.PlatformGoogle}, result.Destinations)
	})
}

func TestEventService_TrackBulk(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{})

	dist.On("Distribute", mock.Anything, mock.Anything, "40").Return([]domain.Platform{domain.PlatformMeta}, nil)

	response, err := service.TrackBulk(context.Background(), "40", []map[string]any{
		purchasePayload(),
		{"event_type": "foo"},
		{"event_type": "page_view"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, response.Accepted)
	assert.Equal(t, 1, response.Rejected)
	require.Len(t, response.Errors, 1)
	assert.Equal(t, 1, response.Errors[0].Index)
	assert.Len(t, response.Results, 2)
	dist.AssertNumberOfCalls(t, "Distribute", 2)
}

func TestEventService_TrackBulk_TooManyEvents(t *testing.T) {
	dist := new(MockEventDistributor)
	service := newTestEventService(dist, nil, EventServiceOptions{BulkMaxEvents: 1})

	_, err := service.TrackBulk(context.Background(), "40", []map[string]any{purchasePayload(), purchasePayload()})

	assert.True(t, IsValidationError(err))
	dist.AssertNotCalled(t, "Distribute", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventService_GetStats(t *testing.T) {
	stats := new(MockStatsReader)
	service := newTestEventService(nil, stats, EventServiceOptions{})

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	stats.On("Stats", mock.Anything, repository.StatsQuery{From: from, To: to}).Return(&repository.StatsResult{
		TotalEvents: 12,
		ByPlatform:  []repository.CountResult{{Key: "meta", Count: 10}},
		ByEventType: []repository.CountResult{{Key: "purchase", Count: 12}},
		Revenue:     []repository.RevenueResult{{Currency: "USD", Total: 1200.5, Count: 12}},
	}, nil)

	response, err := service.GetStats(context.Background(), from, to)

	require.NoError(t, err)
	assert.Equal(t, uint64(12), response.TotalEvents)
	assert.Equal(t, "meta", response.ByPlatform[0].Key)
	assert.Equal(t, uint64(12), response.ByEventType[0].Count)
	assert.Equal(t, 1200.5, response.Revenue[0].Total)
	stats.AssertExpectations(t)
}

func TestEventService_GetStats_DefaultRange(t *testing.T) {
	stats := new(MockStatsReader)
	service := newTestEventService(nil, stats, EventServiceOptions{})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	stats.On("Stats", mock.Anything, repository.StatsQuery{From: now.Add(-7 * 24 * time.Hour), To: now}).
		Return(&repository.StatsResult{}, nil)

	_, err := service.GetStats(context.Background(), time.Time{}, time.Time{})

	require.NoError(t, err)
	stats.AssertExpectations(t)
}

func TestEventService_GetStats_Errors(t *testing.T) {
	stats := new(MockStatsReader)
	service := newTestEventService(nil, stats, EventServiceOptions{})

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := service.GetStats(context.Background(), from, to)
	assert.True(t, IsValidationError(err))

	stats.On("Stats", mock.Anything, mock.Anything).Return(nil, errors.New("clickhouse down"))
	_, err = service.GetStats(context.Background(), to, from)
	assert.Error(t, err)
	assert.False(t, IsValidationError(err))
}
