// Package rediscache provides a best-effort Redis cache for per-account
// capsule lists. The relational store stays authoritative: cache failures
// surface as errors that callers log and treat as misses.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/digicapsule/capsule-api/internal/service"
)

const (
	// TTL for cached capsule lists. Mutations clear the key eagerly; the
	// TTL only bounds staleness when an invalidation was lost.
	capsuleListTTL = 15 * time.Minute

	// Redis key prefixes
	capsuleListPrefix = "capsules:list:" // capsules:list:{userId} - JSON capsule list
)

// CapsuleListCache caches each account's assembled capsule list.
type CapsuleListCache struct {
	rdb *redis.Client
}

// NewCapsuleListCache creates a cache backed by the given Redis client.
func NewCapsuleListCache(rdb *redis.Client) *CapsuleListCache {
	return &CapsuleListCache{rdb: rdb}
}

// Ensure CapsuleListCache implements the service cache interface
var _ service.CapsuleListCache = (*CapsuleListCache)(nil)

func listKey(userID uuid.UUID) string {
	return capsuleListPrefix + userID.String()
}

// GetAll returns the cached list for the account. A missing key reports
// (nil, false, nil) so callers fall through to the store.
func (c *CapsuleListCache) GetAll(ctx context.Context, userID uuid.UUID) ([]service.TaggedCapsule, bool, error) {
	data, err := c.rdb.Get(ctx, listKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read capsule list cache: %w", err)
	}

	var capsules []service.TaggedCapsule
	if err := json.Unmarshal(data, &capsules); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached capsule list: %w", err)
	}

	return capsules, true, nil
}

// SaveAll replaces the account's cached list.
func (c *CapsuleListCache) SaveAll(ctx context.Context, userID uuid.UUID, capsules []service.TaggedCapsule) error {
	data, err := json.Marshal(capsules)
	if err != nil {
		return fmt.Errorf("failed to marshal capsule list: %w", err)
	}

	if err := c.rdb.Set(ctx, listKey(userID), data, capsuleListTTL).Err(); err != nil {
		return fmt.Errorf("failed to store capsule list: %w", err)
	}

	return nil
}

// Clear drops the account's cached list. Clearing an absent key succeeds.
func (c *CapsuleListCache) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := c.rdb.Del(ctx, listKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear capsule list cache: %w", err)
	}
	return nil
}
