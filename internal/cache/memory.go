// Package cache provides an in-process capsule list cache used when no
// Redis instance is configured. It implements the same interface as the
// Redis-backed cache, so the service layer does not care which one it got.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digicapsule/capsule-api/internal/service"
)

// defaultTTL bounds how stale a cached list may get. Mutations invalidate
// eagerly; the TTL only covers writes that bypass this process.
const defaultTTL = 15 * time.Minute

type entry struct {
	capsules  []service.TaggedCapsule
	expiresAt time.Time
}

// MemoryCache is a concurrency-safe in-process CapsuleListCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]entry
	ttl     time.Duration
	now     func() time.Time
}

var _ service.CapsuleListCache = (*MemoryCache)(nil)

// NewMemoryCache creates a MemoryCache with the default TTL.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[uuid.UUID]entry),
		ttl:     defaultTTL,
		now:     time.Now,
	}
}

// GetAll returns the cached list for the user, reporting a miss for absent
// or expired entries.
func (c *MemoryCache) GetAll(_ context.Context, userID uuid.UUID) ([]service.TaggedCapsule, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return nil, false, nil
	}

	// Hand out a copy so callers cannot mutate the cached slice.
	capsules := make([]service.TaggedCapsule, len(e.capsules))
	copy(capsules, e.capsules)
	return capsules, true, nil
}

// SaveAll stores the assembled list for the user.
func (c *MemoryCache) SaveAll(_ context.Context, userID uuid.UUID, capsules []service.TaggedCapsule) error {
	stored := make([]service.TaggedCapsule, len(capsules))
	copy(stored, capsules)

	c.mu.Lock()
	c.entries[userID] = entry{
		capsules:  stored,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Clear drops the cached list for the user.
func (c *MemoryCache) Clear(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}
