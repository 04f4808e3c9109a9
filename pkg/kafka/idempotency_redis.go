package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore is a Redis-backed implementation of IdempotencyStore
// for deployments where multiple consumer instances share a group. Keys
// expire after the configured TTL.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisIdempotencyStore creates a Redis-backed idempotency store. The
// keyPrefix namespaces entries so multiple consumer groups can share one
// Redis instance.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return fmt.Sprintf("%s:processed:%s", s.keyPrefix, eventID)
}

// Contains returns true if the event ID has a live entry in Redis.
func (s *RedisIdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return n > 0, nil
}

// Add marks the event ID as processed with the store TTL.
func (s *RedisIdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, s.key(eventID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency add: %w", err)
	}
	return nil
}
