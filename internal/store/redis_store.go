package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smartsession/internal/domain"
)

// RedisStore keeps records under "smartsession:<namespace>:<key>" with no
// expiry.
type RedisStore struct {
	redis   *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore scopes client to ns.
func NewRedisStore(client *redis.Client, ns domain.Namespace) *RedisStore {
	return &RedisStore{
		redis:   client,
		prefix:  "smartsession:" + ns.String() + ":",
		timeout: 5 * time.Second,
	}
}

// OpenRedis parses a redis:// URL and checks the server is reachable.
func OpenRedis(url string, ns domain.Namespace) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	return NewRedisStore(client, ns), nil
}

func (r *RedisStore) buildKey(key domain.StoreKey) string {
	return r.prefix + key.String()
}

// Put stores value under key, replacing any earlier value.
func (r *RedisStore) Put(key domain.StoreKey, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.redis.Set(ctx, r.buildKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", key, err)
	}
	return nil
}

// Get returns the value under key and whether it was present.
func (r *RedisStore) Get(key domain.StoreKey) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.redis.Get(ctx, r.buildKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (r *RedisStore) Remove(key domain.StoreKey) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.redis.Del(ctx, r.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("store: redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error { return r.redis.Close() }

var _ domain.KVStore = (*RedisStore)(nil)
