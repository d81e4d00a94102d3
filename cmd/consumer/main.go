package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/adapter"
	"github.com/salehmehdi/pixel-manager/internal/config"
	"github.com/salehmehdi/pixel-manager/internal/consumer"
	"github.com/salehmehdi/pixel-manager/internal/delivery"
	"github.com/salehmehdi/pixel-manager/internal/logger"
	"github.com/salehmehdi/pixel-manager/internal/queue/sqs"
	"github.com/salehmehdi/pixel-manager/internal/repository/cache"
	"github.com/salehmehdi/pixel-manager/internal/repository/clickhouse"
	"github.com/salehmehdi/pixel-manager/internal/resilience"
	"github.com/salehmehdi/pixel-manager/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "consumer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment),
		zap.Int("workers", cfg.Consumer.Workers))

	ctx := context.Background()

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	eventLog := clickhouse.NewRepository(chClient, log)

	// Initialize schema (create tables if not exist)
	if err := eventLog.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Counters for rate limiting and circuit breaking are shared through Redis when configured
	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	var store resilience.CounterStore
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
		store = resilience.NewRedisCounterStore(redisClient)
	} else {
		log.Warn("Redis not configured, resilience counters are local to this process")
		store = resilience.NewMemoryCounterStore()
	}

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	metrics := telemetry.NewGlobalRecorder(log)
	factory := delivery.NewFactory(adapter.NewHTTPClient(), store, resilience.OptionsFromConfig(cfg.Resilience), log)
	taskHandler := delivery.NewHandler(factory, eventLog, metrics,
		time.Duration(cfg.Consumer.JobTimeoutSec)*time.Second, log)

	// Initialize consumer
	c := consumer.NewConsumer(cfg, sqsClient, taskHandler, log)

	// Start health check endpoint
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := eventLog.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		addr := ":" + cfg.Consumer.HealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start consumer
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Consumer starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Start(consumerCtx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down consumer gracefully")
	cancel()
	<-done
}
