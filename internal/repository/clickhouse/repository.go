package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/repository"
)

const (
	eventsTable   = "pixel_events"
	failuresTable = "pixel_delivery_failures"
)

// Repository implements repository.EventLogRepository on ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse audit log repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the event log and failure tables
func (r *Repository) InitSchema(ctx context.Context) error {
	eventsQuery := `
	CREATE TABLE IF NOT EXISTS pixel_events (
		event_id String,
		event_type LowCardinality(String),
		value Nullable(Float64),
		currency LowCardinality(String),
		customer_email String,
		customer_phone String,
		customer_first_name String,
		customer_last_name String,
		customer_city String,
		customer_country LowCardinality(String),
		ip_address String,
		user_agent String,
		destinations Array(LowCardinality(String)),
		event_data String,
		created_at DateTime64(3)
	) ENGINE = MergeTree
	ORDER BY (created_at, event_id)
	PARTITION BY toYYYYMM(created_at)
	`

	if err := r.client.Conn().Exec(ctx, eventsQuery); err != nil {
		return fmt.Errorf("failed to create %s table: %w", eventsTable, err)
	}

	failuresQuery := `
	CREATE TABLE IF NOT EXISTS pixel_delivery_failures (
		platform LowCardinality(String),
		app_id String,
		event_id String,
		event_type LowCardinality(String),
		error String,
		attempts UInt32,
		failed_at DateTime64(3)
	) ENGINE = MergeTree
	ORDER BY (failed_at, platform)
	PARTITION BY toYYYYMM(failed_at)
	`

	if err := r.client.Conn().Exec(ctx, failuresQuery); err != nil {
		return fmt.Errorf("failed to create %s table: %w", failuresTable, err)
	}

	r.log.Info("ClickHouse schema initialized")
	return nil
}

// eventRow is the flattened audit row for one distributed event
type eventRow struct {
	EventID      string
	EventType    string
	Value        *float64
	Currency     string
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	City         string
	Country      string
	IPAddress    string
	UserAgent    string
	Destinations []string
	EventData    string
	CreatedAt    time.Time
}

func newEventRow(event *domain.Event, destinations []domain.Platform) (eventRow, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return eventRow{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	row := eventRow{
		EventID:      event.ID,
		EventType:    event.Type.String(),
		Email:        event.Customer.Email.String(),
		FirstName:    event.Customer.FirstName,
		LastName:     event.Customer.LastName,
		City:         event.Customer.City,
		Country:      event.Customer.CountryCode,
		IPAddress:    event.Customer.IPAddress.String(),
		UserAgent:    event.Customer.UserAgent,
		Destinations: make([]string, 0, len(destinations)),
		EventData:    string(data),
		CreatedAt:    event.CreatedAt,
	}
	if event.Value != nil {
		amount := event.Value.Amount
		row.Value = &amount
		row.Currency = string(event.Value.Currency)
	}
	if event.Customer.Phone != nil {
		row.Phone = event.Customer.Phone.FullNumber()
	}
	for _, p := range destinations {
		row.Destinations = append(row.Destinations, p.String())
	}
	return row, nil
}

// Log appends one audit row for a distributed event
func (r *Repository) Log(ctx context.Context, event *domain.Event, destinations []domain.Platform) error {
	row, err := newEventRow(event, destinations)
	if err != nil {
		return err
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO "+eventsTable)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	if err := batch.Append(
		row.EventID,
		row.EventType,
		row.Value,
		row.Currency,
		row.Email,
		row.Phone,
		row.FirstName,
		row.LastName,
		row.City,
		row.Country,
		row.IPAddress,
		row.UserAgent,
		row.Destinations,
		row.EventData,
		row.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append event to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// LogFailure appends a permanent delivery failure
func (r *Repository) LogFailure(ctx context.Context, failure domain.DeliveryFailure) error {
	failedAt := failure.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}

	err := r.client.Conn().Exec(ctx,
		"INSERT INTO "+failuresTable+" (platform, app_id, event_id, event_type, error, attempts, failed_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		failure.Platform.String(),
		failure.AppID,
		failure.EventID,
		failure.EventType.String(),
		failure.Error,
		uint32(failure.Attempts),
		failedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery failure: %w", err)
	}
	return nil
}

// CountByDateRange counts logged events created within the range
func (r *Repository) CountByDateRange(ctx context.Context, query repository.StatsQuery) (uint64, error) {
	var count uint64
	row := r.client.Conn().QueryRow(ctx,
		"SELECT count() FROM "+eventsTable+" WHERE created_at >= ? AND created_at <= ?",
		query.From, query.To)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// StatsByPlatform counts events per destination; an event sent to two platforms counts once for each
func (r *Repository) StatsByPlatform(ctx context.Context, query repository.StatsQuery) ([]repository.CountResult, error) {
	return r.queryCounts(ctx, `
		SELECT toString(arrayJoin(destinations)) AS key, count() AS total
		FROM `+eventsTable+`
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY key
		ORDER BY total DESC
	`, query)
}

// StatsByEventType counts events per event type
func (r *Repository) StatsByEventType(ctx context.Context, query repository.StatsQuery) ([]repository.CountResult, error) {
	return r.queryCounts(ctx, `
		SELECT toString(event_type) AS key, count() AS total
		FROM `+eventsTable+`
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY key
		ORDER BY total DESC
	`, query)
}

// RevenueByCurrency sums event values per currency, ignoring events without a value
func (r *Repository) RevenueByCurrency(ctx context.Context, query repository.StatsQuery) ([]repository.RevenueResult, error) {
	rows, err := r.client.Conn().Query(ctx, `
		SELECT toString(currency) AS currency, sum(assumeNotNull(value)) AS total, count() AS events
		FROM `+eventsTable+`
		WHERE created_at >= ? AND created_at <= ? AND value IS NOT NULL
		GROUP BY currency
		ORDER BY total DESC
	`, query.From, query.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	defer r.closeRows(rows)

	results := []repository.RevenueResult{}
	for rows.Next() {
		var res repository.RevenueResult
		if err := rows.Scan(&res.Currency, &res.Total, &res.Count); err != nil {
			return nil, fmt.Errorf("failed to scan revenue row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revenue rows: %w", err)
	}
	return results, nil
}

// Stats runs every statistics query for the range
func (r *Repository) Stats(ctx context.Context, query repository.StatsQuery) (*repository.StatsResult, error) {
	total, err := r.CountByDateRange(ctx, query)
	if err != nil {
		return nil, err
	}
	byPlatform, err := r.StatsByPlatform(ctx, query)
	if err != nil {
		return nil, err
	}
	byType, err := r.StatsByEventType(ctx, query)
	if err != nil {
		return nil, err
	}
	revenue, err := r.RevenueByCurrency(ctx, query)
	if err != nil {
		return nil, err
	}

	return &repository.StatsResult{
		TotalEvents: total,
		ByPlatform:  byPlatform,
		ByEventType: byType,
		Revenue:     revenue,
	}, nil
}

func (r *Repository) queryCounts(ctx context.Context, query string, q repository.StatsQuery) ([]repository.CountResult, error) {
	rows, err := r.client.Conn().Query(ctx, query, q.From, q.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer r.closeRows(rows)

	results := []repository.CountResult{}
	for rows.Next() {
		var res repository.CountResult
		if err := rows.Scan(&res.Key, &res.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}
	return results, nil
}

func (r *Repository) closeRows(rows driver.Rows) {
	if err := rows.Close(); err != nil {
		r.log.Error("Failed to close rows", zap.Error(err))
	}
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
