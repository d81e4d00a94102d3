package config

import (
	"fmt"

	"github.com/BarkinBalci/envconfig"
)

type Config struct {
	Service     Service     `envconfig:"SERVICE"`
	SQS         SQS         `envconfig:"SQS"`
	ClickHouse  ClickHouse  `envconfig:"CLICKHOUSE"`
	Postgres    Postgres    `envconfig:"POSTGRES"`
	Azure       Azure       `envconfig:"AZURE"`
	Redis       Redis       `envconfig:"REDIS"`
	Consumer    Consumer    `envconfig:"CONSUMER"`
	Credentials Credentials `envconfig:"CREDENTIALS"`
	Resilience  Resilience  `envconfig:"RESILIENCE"`
	Tracking    Tracking    `envconfig:"TRACKING"`
	Auth        Auth        `envconfig:"AUTH"`
}

type Service struct {
	Environment string `envconfig:"ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"API_PORT" default:"8080"`
	Host        string `envconfig:"HOST" default:"localhost:8080"`
}

type SQS struct {
	Endpoint string `envconfig:"ENDPOINT"`
	QueueURL string `envconfig:"QUEUE_URL" required:"true"`
	Region   string `envconfig:"REGION" required:"true"`
}

type ClickHouse struct {
	Host            string `envconfig:"HOST" required:"true"`
	Port            string `envconfig:"PORT" required:"true"`
	Database        string `envconfig:"DB" required:"true"`
	User            string `envconfig:"USER" default:""`
	Password        string `envconfig:"PASSWORD" default:""`
	UseTLS          bool   `envconfig:"USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type Postgres struct {
	URL      string `envconfig:"URL"`
	MaxConns int32  `envconfig:"MAX_CONNS" default:"10"`
}

type Azure struct {
	TablesConnectionString string `envconfig:"TABLES_CONNECTION_STRING"`
	CredentialsTable       string `envconfig:"CREDENTIALS_TABLE" default:"PixelManagerCredentials"`
}

type Redis struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD" default:""`
	DB       int    `envconfig:"DB" default:"0"`
}

type Consumer struct {
	Workers         int    `envconfig:"WORKERS" default:"10"`
	MaxMessages     int32  `envconfig:"MAX_MESSAGES" default:"10"`
	WaitTimeSec     int32  `envconfig:"WAIT_TIME_SEC" default:"20"`
	MaxAttempts     int    `envconfig:"MAX_ATTEMPTS" default:"3"`
	RetryBackoffSec int32  `envconfig:"RETRY_BACKOFF_SEC" default:"10"`
	JobTimeoutSec   int    `envconfig:"JOB_TIMEOUT_SEC" default:"30"`
	BufferSize      int    `envconfig:"BUFFER_SIZE" default:"100"`
	HealthCheckPort string `envconfig:"HEALTH_CHECK_PORT" default:"8081"`
}

type Credentials struct {
	// Backend is one of postgres, aztables or env
	Backend           string `envconfig:"BACKEND" default:"postgres"`
	EncryptionEnabled bool   `envconfig:"ENCRYPTION_ENABLED" default:"true"`
	EncryptionKey     string `envconfig:"ENCRYPTION_KEY"`
	CacheEnabled      bool   `envconfig:"CACHE_ENABLED" default:"true"`
	CacheTTLSec       int    `envconfig:"CACHE_TTL_SEC" default:"3600"`
}

type Resilience struct {
	RetryEnabled            bool `envconfig:"RETRY_ENABLED" default:"true"`
	RetryMaxAttempts        int  `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelayMs     int  `envconfig:"RETRY_INITIAL_DELAY_MS" default:"100"`
	CircuitBreakerEnabled   bool `envconfig:"CIRCUIT_BREAKER_ENABLED" default:"true"`
	CircuitBreakerThreshold int  `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`
	CircuitBreakerTimeout   int  `envconfig:"CIRCUIT_BREAKER_TIMEOUT_SEC" default:"60"`
	RateLimitEnabled        bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitPerMinute      int  `envconfig:"RATE_LIMIT_PER_MINUTE" default:"100"`
	LoggingEnabled          bool `envconfig:"LOGGING_ENABLED" default:"true"`
}

type Tracking struct {
	DefaultAppID        string `envconfig:"DEFAULT_APP_ID" default:"default"`
	LoggingEnabled      bool   `envconfig:"LOGGING_ENABLED" default:"true"`
	BotDetectionEnabled bool   `envconfig:"BOT_DETECTION_ENABLED" default:"false"`
	EventMappingsFile   string `envconfig:"EVENT_MAPPINGS_FILE"`
	BulkMaxEvents       int    `envconfig:"BULK_MAX_EVENTS" default:"100"`
}

type Auth struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
