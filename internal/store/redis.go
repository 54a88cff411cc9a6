package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key names match the ones the web client used in local storage, so a dump
// of either can be loaded into the other.
var redisKeys = map[Collection]string{
	Users:         "medf_users_v1",
	Appointments:  "medf_appts_v1",
	Prescriptions: "medf_presc_v1",
}

type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
}

// RedisBackend stores each collection as a single string value.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBackendFromClient(client, cfg.KeyPrefix), nil
}

func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(c Collection) string {
	return b.prefix + redisKeys[c]
}

func (b *RedisBackend) Read(ctx context.Context, c Collection) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(c)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	return data, err
}

func (b *RedisBackend) Write(ctx context.Context, c Collection, data []byte) error {
	return b.client.Set(ctx, b.key(c), data, 0).Err()
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
