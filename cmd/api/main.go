package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/docs"
	"github.com/salehmehdi/pixel-manager/internal/config"
	"github.com/salehmehdi/pixel-manager/internal/distributor"
	"github.com/salehmehdi/pixel-manager/internal/handler"
	"github.com/salehmehdi/pixel-manager/internal/logger"
	"github.com/salehmehdi/pixel-manager/internal/normalizer"
	"github.com/salehmehdi/pixel-manager/internal/queue/sqs"
	"github.com/salehmehdi/pixel-manager/internal/repository/cache"
	"github.com/salehmehdi/pixel-manager/internal/repository/clickhouse"
	"github.com/salehmehdi/pixel-manager/internal/security"
	"github.com/salehmehdi/pixel-manager/internal/selector"
	"github.com/salehmehdi/pixel-manager/internal/service"
	"github.com/salehmehdi/pixel-manager/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// @title Pixel Manager API
// @version 1.0
// @description API for tracking commerce events and fanning them out to marketing platforms
// @host localhost:8080
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description HS256 JWT as "Bearer <token>"
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET must be set to protect the admin routes")
	}

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx := context.Background()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	eventLog := clickhouse.NewRepository(clickhouseClient, log)
	if err := eventLog.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
	}

	credentials, closeCredentials, err := newCredentialsRepository(ctx, cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create credentials repository", zap.Error(err))
	}
	defer closeCredentials()

	mappings := selector.DefaultMappings()
	if cfg.Tracking.EventMappingsFile != "" {
		mappings, err = selector.LoadMappings(cfg.Tracking.EventMappingsFile)
		if err != nil {
			log.Fatal("Failed to load event mappings", zap.Error(err))
		}
		log.Info("Event mappings loaded", zap.String("file", cfg.Tracking.EventMappingsFile))
	}

	metrics := telemetry.NewGlobalRecorder(log)

	dist := distributor.NewDistributor(
		credentials,
		selector.New(mappings),
		sqsClient,
		eventLog,
		metrics,
		distributor.Options{LoggingEnabled: cfg.Tracking.LoggingEnabled},
		log,
	)

	eventService := service.NewEventService(
		normalizer.New(),
		dist,
		security.NewBotDetector(),
		eventLog,
		service.EventServiceOptions{
			BotDetectionEnabled: cfg.Tracking.BotDetectionEnabled,
			BulkMaxEvents:       cfg.Tracking.BulkMaxEvents,
		},
		log,
	)
	credentialsService := service.NewCredentialsService(credentials, log)

	h := handler.NewHandler(eventService, credentialsService, handler.Options{
		DefaultAppID: cfg.Tracking.DefaultAppID,
		JWTSecret:    cfg.Auth.JWTSecret,
	}, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API server gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}

	// pending audit writes
	dist.Wait()
}
