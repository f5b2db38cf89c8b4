package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fitplay:session:"

// ConnectRedis creates a client for addr and waits for it to answer PING, retrying with backoff.
func ConnectRedis(ctx context.Context, addr string, logger *log.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		if logger != nil {
			logger.Warn("redis ping failed", "addr", addr, "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
}

// RedisStore keeps session values as individual keys sharing a per-session prefix.
type RedisStore struct {
	client *redis.Client
	id     string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, id string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, id: id, ttl: ttl}
}

func (r *RedisStore) ID() string { return r.id }

func (r *RedisStore) key(k string) string {
	return redisKeyPrefix + r.id + ":" + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session value %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.key("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan session %s: %w", r.id, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
