package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
)

// mapCache is a progression.Cache backed by a plain map, counting hits
// so tests can observe read-through behaviour.
type mapCache struct {
	mu      sync.Mutex
	entries map[shared.UserID]*progression.UserProgression
	sets    int
	broken  bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[shared.UserID]*progression.UserProgression)}
}

func (c *mapCache) Get(ctx context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, assert.AnError
	}
	p, ok := c.entries[userID]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}
	return p, nil
}

func (c *mapCache) Set(ctx context.Context, p *progression.UserProgression, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return assert.AnError
	}
	c.entries[p.UserID] = p
	c.sets++
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, userID shared.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return assert.AnError
	}
	delete(c.entries, userID)
	return nil
}

func (c *mapCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[shared.UserID]*progression.UserProgression)
	return nil
}

const cachedRepoUser = "aa111111-1111-4111-8111-111111111111"

func seedUser(t *testing.T, repo *memory.ProgressionRepo, userID string, points int) {
	t.Helper()

	p, err := progression.NewUserProgression(shared.UserID(userID), "")
	assert.NoError(t, err)
	p.TotalPoints = progression.Points(points)
	assert.NoError(t, repo.Create(context.Background(), p))
}

func TestCachedRepo_ReadThroughPopulatesCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProgressionRepo()
	cache := newMapCache()
	seedUser(t, repo, cachedRepoUser, 250)

	cached := NewCachedProgressionRepo(repo, cache, time.Minute, nil)

	p, err := cached.Get(ctx, shared.UserID(cachedRepoUser))
	assert.NoError(t, err)
	assert.Equal(t, progression.Points(250), p.TotalPoints)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache: no new Set.
	p2, err := cached.Get(ctx, shared.UserID(cachedRepoUser))
	assert.NoError(t, err)
	assert.Equal(t, p.TotalPoints, p2.TotalPoints)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedRepo_UpdateInvalidatesSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProgressionRepo()
	cache := newMapCache()
	seedUser(t, repo, cachedRepoUser, 100)

	cached := NewCachedProgressionRepo(repo, cache, time.Minute, nil)

	_, err := cached.Get(ctx, shared.UserID(cachedRepoUser))
	assert.NoError(t, err)

	_, err = cached.Update(ctx, shared.UserID(cachedRepoUser), func(p *progression.UserProgression) error {
		p.TotalPoints += 50
		return nil
	})
	assert.NoError(t, err)

	// The stale snapshot is gone; the next read sees the new total.
	p, err := cached.Get(ctx, shared.UserID(cachedRepoUser))
	assert.NoError(t, err)
	assert.Equal(t, progression.Points(150), p.TotalPoints)
}

func TestCachedRepo_BrokenCacheDegradesToRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProgressionRepo()
	cache := newMapCache()
	cache.broken = true
	seedUser(t, repo, cachedRepoUser, 75)

	cached := NewCachedProgressionRepo(repo, cache, time.Minute, nil)

	p, err := cached.Get(ctx, shared.UserID(cachedRepoUser))
	assert.NoError(t, err)
	assert.Equal(t, progression.Points(75), p.TotalPoints)

	ok, err := cached.Exists(ctx, shared.UserID(cachedRepoUser))
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedRepo_MissForUnknownUser(t *testing.T) {
	cached := NewCachedProgressionRepo(memory.NewProgressionRepo(), newMapCache(), time.Minute, nil)

	_, err := cached.Get(context.Background(), shared.UserID("bb222222-2222-4222-8222-222222222222"))
	assert.True(t, shared.IsNotFound(err))
}
