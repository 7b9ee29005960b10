package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedEventKeyPrefix = "processed-event:"

// IdempotencyStore records processed Kafka event ids in Redis so that every
// replica of the service skips the same duplicates.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a Redis-backed kafka.IdempotencyStore.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Contains reports whether eventID has been recorded.
func (s *IdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedEventKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists processed event: %w", err)
	}
	return n == 1, nil
}

// Add records eventID for the configured TTL.
func (s *IdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.SetNX(ctx, processedEventKeyPrefix+eventID, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx processed event: %w", err)
	}
	return nil
}
