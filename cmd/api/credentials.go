package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/config"
	"github.com/salehmehdi/pixel-manager/internal/repository"
	"github.com/salehmehdi/pixel-manager/internal/repository/azuretables"
	"github.com/salehmehdi/pixel-manager/internal/repository/cache"
	"github.com/salehmehdi/pixel-manager/internal/repository/env"
	"github.com/salehmehdi/pixel-manager/internal/repository/postgres"
	"github.com/salehmehdi/pixel-manager/internal/security"
)

// newCredentialsRepository builds the configured credentials backend, wrapped in the Redis cache when available.
// The returned cleanup releases the backend's connections.
func newCredentialsRepository(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (repository.CredentialsRepository, func(), error) {
	var (
		repo    repository.CredentialsRepository
		cleanup = func() {}
	)

	switch cfg.Credentials.Backend {
	case "postgres":
		encryptor, err := newEncryptor(cfg.Credentials, log)
		if err != nil {
			return nil, nil, err
		}
		db, err := postgres.Connect(ctx, &cfg.Postgres, log)
		if err != nil {
			return nil, nil, err
		}
		pgRepo := postgres.NewCredentialsRepository(db.Pool, encryptor, log)
		if err := pgRepo.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize credentials schema: %w", err)
		}
		repo, cleanup = pgRepo, db.Close

	case "aztables":
		encryptor, err := newEncryptor(cfg.Credentials, log)
		if err != nil {
			return nil, nil, err
		}
		table, err := azuretables.NewTableClient(ctx, cfg.Azure.TablesConnectionString, cfg.Azure.CredentialsTable)
		if err != nil {
			return nil, nil, err
		}
		repo = azuretables.NewCredentialsRepository(table, encryptor, log)

	case "env":
		repo = env.NewCredentialsRepository(nil)

	default:
		return nil, nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
	}

	if cfg.Credentials.CacheEnabled && redisClient != nil {
		ttl := time.Duration(cfg.Credentials.CacheTTLSec) * time.Second
		repo = cache.NewCredentialsRepository(repo, redisClient, ttl, log)
	}

	log.Info("Credentials repository initialized",
		zap.String("backend", cfg.Credentials.Backend),
		zap.Bool("cached", cfg.Credentials.CacheEnabled && redisClient != nil))

	return repo, cleanup, nil
}

func newEncryptor(cfg config.Credentials, log *zap.Logger) (security.Encryptor, error) {
	if !cfg.EncryptionEnabled {
		return security.NoopEncryptor{}, nil
	}
	if cfg.EncryptionKey == "" {
		return nil, errors.New("CREDENTIALS_ENCRYPTION_KEY is required when encryption is enabled")
	}
	return security.NewAESEncryptor(cfg.EncryptionKey, log)
}
