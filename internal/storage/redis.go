package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps state in Redis under an optional key prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to url (redis://...) and verifies the connection
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisStoreFromClient(ctx, redis.NewClient(opts), prefix)
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(ctx context.Context, client *redis.Client, prefix string) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable(BackendRedis, "ping", "", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(BackendRedis, "get", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return unavailable(BackendRedis, "set", key, err)
	}
	return nil
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	v, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, unavailable(BackendRedis, "incr", key, err)
	}
	return v, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Backend() string { return BackendRedis }

func (r *RedisStore) Close() error {
	return r.client.Close()
}
