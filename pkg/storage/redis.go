package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of Redis operations the store needs.
// GoRedis adapts a github.com/redis/go-redis/v9 client to it.
type RedisClient interface {
	// Get returns the value under key, or ErrRedisNil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key without expiration.
	Set(ctx context.Context, key string, value []byte) error
}

// ErrRedisNil is returned by a RedisClient when a key doesn't exist.
var ErrRedisNil = errors.New("redis: nil")

// RedisStore is a Redis-backed Store.
type RedisStore struct {
	client RedisClient
	prefix string
	closed bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
}

// WithRedisPrefix sets the key prefix.
// Default: "senhas:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client RedisClient, opts ...RedisStoreOption) *RedisStore {
	cfg := &redisStoreConfig{
		prefix: "senhas:",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.prefix,
	}
}

// Get returns the value stored under key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if r.closed {
		return nil, ErrStoreClosed
	}

	data, err := r.client.Get(ctx, r.prefix+key)
	if err != nil {
		if errors.Is(err, ErrRedisNil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores data under key.
func (r *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	if r.closed {
		return ErrStoreClosed
	}
	return r.client.Set(ctx, r.prefix+key, data)
}

// Close marks the store as closed.
// Note: This does not close the underlying Redis client,
// as it may be shared with the broadcast bridge.
func (r *RedisStore) Close() error {
	r.closed = true
	return nil
}

// Prefix returns the current key prefix.
func (r *RedisStore) Prefix() string {
	return r.prefix
}

// GoRedis adapts a go-redis client to RedisClient.
func GoRedis(client redis.UniversalClient) RedisClient {
	return goRedisClient{client: client}
}

type goRedisClient struct {
	client redis.UniversalClient
}

func (c goRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRedisNil
	}
	return data, err
}

func (c goRedisClient) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, 0).Err()
}
