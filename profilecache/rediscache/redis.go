// Package rediscache provides a Redis-backed profilecache.Cache for
// multi-process deployments where profile lookups should be shared across
// instances. Expiry is delegated to Redis key TTLs.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

const fallbackTTL = time.Minute

// Config for the Redis-backed cache. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all cache keys. ENV: PROFILE_CACHE_KEY_PREFIX
	KeyPrefix string `env:"PROFILE_CACHE_KEY_PREFIX,default=googletoken:profile:"`
}

// Cache implements profilecache.Cache on a Redis client.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	ownClient bool
}

// New builds a Cache from cfg, dialing and pinging its own client.
func New(cfg Config) (*Cache, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "googletoken:profile:"
	}
	return &Cache{client: client, keyPrefix: prefix, ownClient: true}, nil
}

// NewWithClient reuses an existing Redis client. The caller keeps ownership;
// Close is a no-op.
func NewWithClient(client *redis.Client, keyPrefix string) *Cache {
	if keyPrefix == "" {
		keyPrefix = "googletoken:profile:"
	}
	return &Cache{client: client, keyPrefix: keyPrefix}
}

// NewFromEnv builds a Cache using envdecode to populate Config.
func NewFromEnv() (*Cache, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return New(cfg)
}

// Close closes the Redis client if this Cache owns it.
func (c *Cache) Close() error {
	if !c.ownClient {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) key(k string) string { return c.keyPrefix + k }

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = fallbackTTL
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
