package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	entitlementKeyPrefix = "entitlement:"

	entitlementGranted = "1"
	entitlementRevoked = "0"
)

// EntitlementCache implements repository.EntitlementCache using Redis.
// Only positive results are stored. A refund leaves a revocation marker
// under the same key so a grant racing the refund cannot restore access.
type EntitlementCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEntitlementCache creates a new Redis-backed entitlement cache.
func NewEntitlementCache(client *redis.Client, ttl time.Duration) *EntitlementCache {
	return &EntitlementCache{
		client: client,
		ttl:    ttl,
	}
}

func entitlementKey(buyerID, productID string) string {
	return entitlementKeyPrefix + buyerID + ":" + productID
}

// IsEntitled reports whether a grant is cached for the pair. A revocation
// marker reads as a miss.
func (c *EntitlementCache) IsEntitled(ctx context.Context, buyerID, productID string) (bool, error) {
	val, err := c.client.Get(ctx, entitlementKey(buyerID, productID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get entitlement: %w", err)
	}
	return val == entitlementGranted, nil
}

// Grant caches a positive result for the pair with the configured TTL. It
// is a no-op while a revocation marker for the pair is held.
func (c *EntitlementCache) Grant(ctx context.Context, buyerID, productID string) error {
	if err := c.client.SetNX(ctx, entitlementKey(buyerID, productID), entitlementGranted, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx entitlement: %w", err)
	}
	return nil
}

// Revoke overwrites any cached grant for the pair with a revocation marker
// that lives for the configured TTL.
func (c *EntitlementCache) Revoke(ctx context.Context, buyerID, productID string) error {
	if err := c.client.Set(ctx, entitlementKey(buyerID, productID), entitlementRevoked, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set entitlement revocation: %w", err)
	}
	return nil
}
