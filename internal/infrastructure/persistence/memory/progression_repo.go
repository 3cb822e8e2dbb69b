// Package memory provides in-memory implementations of the persistence
// interfaces. Used in tests and for local development without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ProgressionRepo is an in-memory progression.Repository.
// Update holds a per-repo lock for the whole read-mutate-write cycle,
// matching the transactional isolation of the Postgres implementation.
type ProgressionRepo struct {
	mu      sync.RWMutex
	records map[shared.UserID]*progression.UserProgression
}

// NewProgressionRepo creates an empty in-memory repository.
func NewProgressionRepo() *ProgressionRepo {
	return &ProgressionRepo{
		records: make(map[shared.UserID]*progression.UserProgression),
	}
}

// Create inserts a zero-valued record.
func (r *ProgressionRepo) Create(ctx context.Context, p *progression.UserProgression) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[p.UserID]; ok {
		return shared.ErrProgressionAlreadyExists
	}

	clone := p.Clone()
	clone.Version = 1
	r.records[p.UserID] = clone
	p.Version = 1
	return nil
}

// Get returns a copy of the record.
func (r *ProgressionRepo) Get(ctx context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.records[userID]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}
	return p.Clone(), nil
}

// Update applies the mutator under the repository lock. The mutator
// operates on a copy; the copy replaces the stored record only when
// the mutator succeeds.
func (r *ProgressionRepo) Update(ctx context.Context, userID shared.UserID, fn progression.Mutator) (*progression.UserProgression, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[userID]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}

	work := stored.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}

	work.Version = stored.Version + 1
	r.records[userID] = work
	return work.Clone(), nil
}

// Exists checks record existence.
func (r *ProgressionRepo) Exists(ctx context.Context, userID shared.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[userID]
	return ok, nil
}

// List returns records with pagination, ordered by user ID for stability.
func (r *ProgressionRepo) List(ctx context.Context, opts progression.ListOptions) ([]*progression.UserProgression, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*progression.UserProgression, 0, len(r.records))
	for _, p := range r.records {
		if !opts.OrgID.IsGlobal() && p.OrgID != opts.OrgID {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })

	if opts.Offset >= len(all) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if opts.Limit <= 0 || end > len(all) {
		end = len(all)
	}

	out := make([]*progression.UserProgression, 0, end-opts.Offset)
	for _, p := range all[opts.Offset:end] {
		out = append(out, p.Clone())
	}
	return out, nil
}

// Count returns the number of records.
func (r *ProgressionRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records), nil
}

// TopByPoints returns records ordered by points descending.
func (r *ProgressionRepo) TopByPoints(ctx context.Context, orgID shared.OrgID, limit int) ([]*progression.UserProgression, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*progression.UserProgression, 0, len(r.records))
	for _, p := range r.records {
		if !orgID.IsGlobal() && p.OrgID != orgID {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalPoints != all[j].TotalPoints {
			return all[i].TotalPoints > all[j].TotalPoints
		}
		return all[i].UserID < all[j].UserID
	})

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	out := make([]*progression.UserProgression, 0, len(all))
	for _, p := range all {
		out = append(out, p.Clone())
	}
	return out, nil
}
