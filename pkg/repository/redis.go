package repository

import (
	"context"
	"errors"

	"github.com/example/obelisco/pkg/config"
	"github.com/go-redis/redis/v8"
)

// RedisStore backs the KeyValue substrate with Redis.
type RedisStore struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	// Payloads live until overwritten or deleted, like a browser's local
	// store. No expiration.
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
