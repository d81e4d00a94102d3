package clickhouse

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/repository"
)

// MockConn is a mock implementation of the driver.Conn methods the repository uses
type MockConn struct {
	driver.Conn
	mock.Mock
}

func (m *MockConn) Exec(ctx context.Context, query string, args ...any) error {
	called := m.Called(ctx, query, args)
	return called.Error(0)
}

func (m *MockConn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	called := m.Called(ctx, query, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).(driver.Rows), called.Error(1)
}

func (m *MockConn) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	called := m.Called(ctx, query, args)
	return called.Get(0).(driver.Row)
}

// scanInto copies values into Scan destinations of matching types
func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(values[i]))
	}
	return nil
}

// fakeRow is a single-row result
type fakeRow struct {
	driver.Row
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

// fakeRows iterates a fixed result set
type fakeRows struct {
	driver.Rows
	rows   [][]any
	next   int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.next >= len(r.rows) {
		return false
	}
	r.next++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.next-1], dest)
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

func queryContaining(fragment string) any {
	return mock.MatchedBy(func(q string) bool { return strings.Contains(q, fragment) })
}

func newTestRepository(conn *MockConn) *Repository {
	return NewRepository(&Client{conn: conn, log: zap.NewNop()}, zap.NewNop())
}

var (
	statsFrom  = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	statsTo    = time.Date(2025, 3, 7, 23, 59, 59, 0, time.UTC)
	statsQuery = repository.StatsQuery{From: statsFrom, To: statsTo}
	rangeArgs  = []any{statsFrom, statsTo}
)

func TestRepository_LogFailure(t *testing.T) {
	conn := new(MockConn)
	repo := newTestRepository(conn)
	failedAt := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	conn.On("Exec", mock.Anything,
		"INSERT INTO pixel_delivery_failures (platform, app_id, event_id, event_type, error, attempts, failed_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		[]any{"meta", "40", "evt-1", "purchase", "HTTP 500: boom", uint32(3), failedAt},
	).Return(nil)

	err := repo.LogFailure(context.Background(), domain.DeliveryFailure{
		Platform:  domain.PlatformMeta,
		AppID:     "40",
		EventID:   "evt-1",
		EventType: domain.EventTypePurchase,
		Error:     "HTTP 500: boom",
		Attempts:  3,
		FailedAt:  failedAt,
	})

	require.NoError(t, err)
	conn.AssertExpectations(t)
}

func TestRepository_LogFailure_DefaultsTimestampAndWrapsError(t *testing.T) {
	conn := new(MockConn)
	repo := newTestRepository(conn)

	var args []any
	conn.On("Exec", mock.Anything, queryContaining("INSERT INTO pixel_delivery_failures"), mock.Anything).
		Run(func(a mock.Arguments) { args = a.Get(2).([]any) }).
		Return(errors.New("connection reset"))

	before := time.Now().UTC()
	err := repo.LogFailure(context.Background(), domain.DeliveryFailure{Platform: domain.PlatformTikTok, EventID: "evt-2"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert delivery failure")
	require.Len(t, args, 7)
	assert.Equal(t, "", args[3], "an undecodable task has no event type")
	failedAt, ok := args[6].(time.Time)
	require.True(t, ok)
	assert.False(t, failedAt.Before(before))
}

func TestRepository_CountByDateRange(t *testing.T) {
	conn := new(MockConn)
	repo := newTestRepository(conn)

	conn.On("QueryRow", mock.Anything,
		"SELECT count() FROM pixel_events WHERE created_at >= ? AND created_at <= ?",
		rangeArgs,
	).Return(&fakeRow{values: []any{uint64(42)}})

	count, err := repo.CountByDateRange(context.Background(), statsQuery)

	require.NoError(t, err)
	assert.Equal(t, uint64(42), count)
}

func TestRepository_Stats(t *testing.T) {
	conn := new(MockConn)
	repo := newTestRepository(conn)

	platforms := &fakeRows{rows: [][]any{{"meta", uint64(7)}, {"google", uint64(3)}}}
	types := &fakeRows{rows: [][]any{{"purchase", uint64(6)}, {"page_view", uint64(4)}}}
	revenue := &fakeRows{rows: [][]any{{"USD", 599.5, uint64(5)}}}

	conn.On("QueryRow", mock.Anything, queryContaining("SELECT count() FROM pixel_events"), rangeArgs).
		Return(&fakeRow{values: []any{uint64(10)}})
	conn.On("Query", mock.Anything, queryContaining("arrayJoin(destinations)"), rangeArgs).Return(platforms, nil)
	conn.On("Query", mock.Anything, queryContaining("toString(event_type)"), rangeArgs).Return(types, nil)
	conn.On("Query", mock.Anything, queryContaining("value IS NOT NULL"), rangeArgs).Return(revenue, nil)

	result, err := repo.Stats(context.Background(), statsQuery)

	require.NoError(t, err)
	assert.Equal(t, uint64(10), result.TotalEvents)
	assert.Equal(t, []repository.CountResult{{Key: "meta", Count: 7}, {Key: "google", Count: 3}}, result.ByPlatform)
	assert.Equal(t, []repository.CountResult{{Key: "purchase", Count: 6}, {Key: "page_view", Count: 4}}, result.ByEventType)
	assert.Equal(t, []repository.RevenueResult{{Currency: "USD", Total: 599.5, Count: 5}}, result.Revenue)
	assert.True(t, platforms.closed)
	assert.True(t, types.closed)
	assert.True(t, revenue.closed)
	conn.AssertExpectations(t)
}

func TestRepository_Stats_EmptyRangeReturnsEmptySlices(t *testing.T) {
	conn := new(MockConn)
	repo := newTestRepository(conn)

	conn.On("QueryRow", mock.Anything, mock.Anything, rangeArgs).Return(&fakeRow{values: []any{uint64(0)}})
	conn.On("Query", mock.Anything, mock.Anything, rangeArgs).Return(&fakeRows{}, nil)

	result, err := repo.Stats(context.Background(), statsQuery)

	require.NoError(t, err)
	assert.NotNil(t, result.ByPlatform)
	assert.Empty(t, result.ByPlatform)
	assert.NotNil(t, result.Revenue)
	assert.Empty(t, result.Revenue)
}

func TestRepository_Stats_Errors(t *testing.T) {
	t.Run("count fails", func(t *testing.T) {
		conn := new(MockConn)
		repo := newTestRepository(conn)
		conn.On("QueryRow", mock.Anything, mock.Anything, rangeArgs).Return(&fakeRow{err: errors.New("timeout")})

		_, err := repo.Stats(context.Background(), statsQuery)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count events")
		conn.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("revenue query fails", func(t *testing.T) {
		conn := new(MockConn)
		repo := newTestRepository(conn)
		conn.On("QueryRow", mock.Anything, mock.Anything, rangeArgs).Return(&fakeRow{values: []any{uint64(1)}})
		conn.On("Query", mock.Anything, queryContaining("value IS NOT NULL"), rangeArgs).Return(nil, errors.New("timeout"))
		conn.On("Query", mock.Anything, mock.Anything, rangeArgs).Return(&fakeRows{}, nil)

		_, err := repo.Stats(context.Background(), statsQuery)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query revenue")
	})
}
