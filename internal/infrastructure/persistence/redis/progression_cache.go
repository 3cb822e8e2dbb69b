package redis

import (
	"context"
	"errors"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ProgressionCache implements progression.Cache using the generic Redis Cache.
// Read-through callers treat ErrCacheMiss as "go to the repository".
type ProgressionCache struct {
	cache *Cache
}

// NewProgressionCache creates a new ProgressionCache.
func NewProgressionCache(cache *Cache) *ProgressionCache {
	return &ProgressionCache{cache: cache}
}

var _ progression.Cache = (*ProgressionCache)(nil)

// Get gets a progression record from cache.
// Returns shared.ErrProgressionNotFound on a miss.
func (c *ProgressionCache) Get(ctx context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	var p progression.UserProgression
	if err := c.cache.Get(ctx, ProgressionKey(userID.String()), &p); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Set stores a progression record in cache.
func (c *ProgressionCache) Set(ctx context.Context, p *progression.UserProgression, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLProgressionCache
	}
	return c.cache.Set(ctx, ProgressionKey(p.UserID.String()), p, ttl)
}

// Invalidate removes a progression record from cache.
func (c *ProgressionCache) Invalidate(ctx context.Context, userID shared.UserID) error {
	return c.cache.Delete(ctx, ProgressionKey(userID.String()))
}

// InvalidateAll clears all cached progression records.
func (c *ProgressionCache) InvalidateAll(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixProgression+"*")
}
