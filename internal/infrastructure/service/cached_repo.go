package service

import (
	"context"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED PROGRESSION REPOSITORY
// Read-through cache in front of the durable repository. Reads hit the
// cache first; writes go straight to the repository and invalidate the
// cached snapshot so the next read repopulates it. Cache failures are
// never fatal: a broken cache degrades to plain repository access.
// ══════════════════════════════════════════════════════════════════════════════

// CachedProgressionRepo wraps a progression.Repository with a
// progression.Cache (typically Redis-backed).
type CachedProgressionRepo struct {
	inner progression.Repository
	cache progression.Cache
	ttl   time.Duration
	log   *logger.Logger
}

var _ progression.Repository = (*CachedProgressionRepo)(nil)

// NewCachedProgressionRepo creates a caching wrapper around repo.
// A non-positive ttl falls back to 5 minutes.
func NewCachedProgressionRepo(repo progression.Repository, cache progression.Cache, ttl time.Duration, log *logger.Logger) *CachedProgressionRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logger.Default()
	}

	return &CachedProgressionRepo{
		inner: repo,
		cache: cache,
		ttl:   ttl,
		log:   log.With(logger.Component("progression_cache")),
	}
}

// Create writes through to the repository. Nothing is cached until the
// first read.
func (r *CachedProgressionRepo) Create(ctx context.Context, p *progression.UserProgression) error {
	return r.inner.Create(ctx, p)
}

// Get returns the cached snapshot when present, otherwise reads the
// repository and populates the cache.
func (r *CachedProgressionRepo) Get(ctx context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	if cached, err := r.cache.Get(ctx, userID); err == nil && cached != nil {
		return cached, nil
	}

	p, err := r.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, p, r.ttl); err != nil {
		r.log.Warn("cache set failed", logger.UserID(userID.String()), logger.Err(err))
	}

	return p, nil
}

// Update applies the mutator through the repository and invalidates the
// cached snapshot. The updated record is returned from the repository,
// never from the cache, so optimistic lock semantics are untouched.
func (r *CachedProgressionRepo) Update(ctx context.Context, userID shared.UserID, fn progression.Mutator) (*progression.UserProgression, error) {
	p, err := r.inner.Update(ctx, userID, fn)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Invalidate(ctx, userID); err != nil {
		r.log.Warn("cache invalidation failed", logger.UserID(userID.String()), logger.Err(err))
	}

	return p, nil
}

// Exists bypasses the cache: a cached snapshot proves existence, but a
// cache miss proves nothing.
func (r *CachedProgressionRepo) Exists(ctx context.Context, userID shared.UserID) (bool, error) {
	if cached, err := r.cache.Get(ctx, userID); err == nil && cached != nil {
		return true, nil
	}
	return r.inner.Exists(ctx, userID)
}

// List always reads the repository. Page listings are scheduler traffic
// and caching them per-page buys nothing.
func (r *CachedProgressionRepo) List(ctx context.Context, opts progression.ListOptions) ([]*progression.UserProgression, error) {
	return r.inner.List(ctx, opts)
}

// Count always reads the repository.
func (r *CachedProgressionRepo) Count(ctx context.Context) (int, error) {
	return r.inner.Count(ctx)
}

// TopByPoints always reads the repository.
func (r *CachedProgressionRepo) TopByPoints(ctx context.Context, orgID shared.OrgID, limit int) ([]*progression.UserProgression, error) {
	return r.inner.TopByPoints(ctx, orgID, limit)
}
