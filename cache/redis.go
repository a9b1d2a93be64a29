package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is prepended to every site key.
const DefaultRedisKeyPrefix = "sitetrans:site:"

// RedisStore keeps one JSON document per site in a Redis string key.
// Keys never expire.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds configuration for the Redis store.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379/0")
	KeyPrefix string // Prefix for all keys (default: "sitetrans:site:")
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreFromClient creates a RedisStore from an existing client.
func NewRedisStoreFromClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Key returns the Redis key for a site.
func (s *RedisStore) Key(siteID string) (string, error) {
	safe, err := SanitizeSiteID(siteID)
	if err != nil {
		return "", err
	}
	return s.keyPrefix + safe, nil
}

// Load reads the site's document.
func (s *RedisStore) Load(ctx context.Context, siteID string) (SiteCache, error) {
	key, err := s.Key(siteID)
	if err != nil {
		return SiteCache{}, err
	}

	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return SiteCache{}, nil
	}
	if err != nil {
		return SiteCache{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	doc, err := Decode(val)
	if err != nil {
		return SiteCache{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	return doc, nil
}

// Save overwrites the site's document.
func (s *RedisStore) Save(ctx context.Context, siteID string, doc SiteCache) error {
	key, err := s.Key(siteID)
	if err != nil {
		return err
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Verify RedisStore implements Store
var _ Store = (*RedisStore)(nil)
