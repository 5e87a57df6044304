package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
)

// RedisProfileCache implements ProfileCache on Redis.
type RedisProfileCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisProfileCache creates a new Redis profile cache.
func NewRedisProfileCache(cfg pubsub.RedisConfig, prefix string, ttl time.Duration) (*RedisProfileCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProfileCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (c *RedisProfileCache) key(sessionKey, userID string) string {
	return fmt.Sprintf("%s:%s:profile:%s", c.prefix, sessionKey, userID)
}

func (c *RedisProfileCache) Get(ctx context.Context, sessionKey, userID string) (*domain.Profile, error) {
	data, err := c.client.Get(ctx, c.key(sessionKey, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &profile, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, sessionKey, userID string, profile *domain.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, c.key(sessionKey, userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// InvalidateSession drops every entry cached under a session key. Called
// when the session key changes so nothing leaks across broadcasts.
func (c *RedisProfileCache) InvalidateSession(ctx context.Context, sessionKey string) error {
	pattern := fmt.Sprintf("%s:%s:profile:*", c.prefix, sessionKey)

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisProfileCache) Close() error {
	return c.client.Close()
}
