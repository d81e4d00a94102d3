package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/repository"
)

const DefaultTTL = time.Hour

type cachedCredentials struct {
	AppID    string            `json:"app_id"`
	Category string            `json:"category"`
	Data     map[string]string `json:"data"`
}

var errStaleFill = errors.New("credentials changed while loading")

// CredentialsRepository wraps a credentials store with Redis cache-aside reads.
// Writes go to the store first, then bump the application's generation and evict the cached entry.
// A read only fills the cache when the generation it saw before loading is still current.
type CredentialsRepository struct {
	base  repository.CredentialsRepository
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewCredentialsRepository creates the caching wrapper
func NewCredentialsRepository(base repository.CredentialsRepository, client *redis.Client, ttl time.Duration, log *zap.Logger) *CredentialsRepository {
	if base == nil {
		panic("cache.NewCredentialsRepository: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CredentialsRepository{
		base:  base,
		redis: client,
		ttl:   ttl,
		log:   log,
	}
}

// Key returns the cache key for an application
func Key(appID string) string {
	return "pixel_manager:credentials:app:" + appID
}

// GenerationKey returns the key of an application's write counter
func GenerationKey(appID string) string {
	return Key(appID) + ":generation"
}

func (c *CredentialsRepository) FindByApplication(ctx context.Context, appID string) (*domain.ApplicationCredentials, error) {
	if creds, ok := c.load(ctx, appID); ok {
		return creds, nil
	}

	generation, generationOK := c.generation(ctx, appID)

	creds, err := c.base.FindByApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, nil
	}

	if generationOK {
		c.store(ctx, creds, generation)
	}
	return creds, nil
}

func (c *CredentialsRepository) Save(ctx context.Context, creds *domain.ApplicationCredentials) error {
	if err := c.base.Save(ctx, creds); err != nil {
		return err
	}
	c.evict(ctx, creds.AppID)
	return nil
}

func (c *CredentialsRepository) Delete(ctx context.Context, appID string) error {
	if err := c.base.Delete(ctx, appID); err != nil {
		return err
	}
	c.evict(ctx, appID)
	return nil
}

func (c *CredentialsRepository) load(ctx context.Context, appID string) (*domain.ApplicationCredentials, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, Key(appID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Failed to read credentials cache", zap.String("app_id", appID), zap.Error(err))
			_ = c.redis.Del(ctx, Key(appID)).Err()
		}
		return nil, false
	}

	var cached cachedCredentials
	if err := json.Unmarshal(data, &cached); err != nil {
		c.log.Warn("Discarding corrupt credentials cache entry", zap.String("app_id", appID), zap.Error(err))
		_ = c.redis.Del(ctx, Key(appID)).Err()
		return nil, false
	}

	creds := domain.NewApplicationCredentialsFromData(appID, cached.Data)
	if cached.Category != "" {
		creds.Category = cached.Category
	}
	return creds, true
}

// generation reads the application's write counter; a missing counter is generation 0
func (c *CredentialsRepository) generation(ctx context.Context, appID string) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	n, err := c.redis.Get(ctx, GenerationKey(appID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn("Failed to read credentials generation", zap.String("app_id", appID), zap.Error(err))
		return 0, false
	}
	return n, true
}

// store fills the cache unless a write bumped the generation since the caller read it
func (c *CredentialsRepository) store(ctx context.Context, creds *domain.ApplicationCredentials, generation int64) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(cachedCredentials{
		AppID:    creds.AppID,
		Category: creds.Category,
		Data:     creds.Data(),
	})
	if err != nil {
		return
	}

	generationKey := GenerationKey(creds.AppID)
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key(creds.AppID), data, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("Skipping credentials cache fill after concurrent write", zap.String("app_id", creds.AppID))
	default:
		c.log.Warn("Failed to write credentials cache", zap.String("app_id", creds.AppID), zap.Error(err))
	}
}

func (c *CredentialsRepository) evict(ctx context.Context, appID string) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(appID))
		pipe.Del(ctx, Key(appID))
		return nil
	})
	if err != nil {
		c.log.Error("Failed to evict credentials cache entry", zap.String("app_id", appID), zap.Error(err))
	}
}
