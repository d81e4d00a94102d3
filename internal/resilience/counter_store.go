package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is a shared, expiring counter store. Incr must be atomic across processes.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	// Incr increments key and returns the new count. With resetTTL the expiry is
	// rewritten on every call; otherwise it is only set when the key is created.
	Incr(ctx context.Context, key string, ttl time.Duration, resetTTL bool) (int64, error)
	Delete(ctx context.Context, key string) error
}

// RedisCounterStore keeps counters in Redis
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, ttl time.Duration, resetTTL bool) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		if resetTTL {
			pipe.Expire(ctx, key, ttl)
		} else {
			pipe.ExpireNX(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *RedisCounterStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete counter %s: %w", key, err)
	}
	return nil
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounterStore is a process-local CounterStore for single-process deployments and tests
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]memoryCounter),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for expiry
func (s *MemoryCounterStore) WithClock(now func() time.Time) *MemoryCounterStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	return c.count, nil
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, ttl time.Duration, resetTTL bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.live(key)
	if !ok {
		c = memoryCounter{expiresAt: s.now().Add(ttl)}
	} else if resetTTL {
		c.expiresAt = s.now().Add(ttl)
	}
	c.count++
	s.counters[key] = c
	return c.count, nil
}

func (s *MemoryCounterStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

// live returns the unexpired counter for key; callers hold s.mu
func (s *MemoryCounterStore) live(key string) (memoryCounter, bool) {
	c, ok := s.counters[key]
	if !ok {
		return memoryCounter{}, false
	}
	if !s.now().Before(c.expiresAt) {
		delete(s.counters, key)
		return memoryCounter{}, false
	}
	return c, true
}
