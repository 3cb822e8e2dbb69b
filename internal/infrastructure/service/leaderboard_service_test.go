package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
	"github.com/reefacademy/progression-hub/pkg/circuitbreaker"
)

var errConnRefused = errors.New("connection refused")

// failingStore fails every call until healed.
type failingStore struct {
	inner  progression.LeaderboardStore
	broken bool
}

func (f *failingStore) UpdateScore(ctx context.Context, orgID shared.OrgID, userID shared.UserID, score progression.LeaderboardScore) error {
	if f.broken {
		return errConnRefused
	}
	return f.inner.UpdateScore(ctx, orgID, userID, score)
}

func (f *failingStore) Top(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, offset, limit int) ([]progression.LeaderboardEntry, error) {
	if f.broken {
		return nil, errConnRefused
	}
	return f.inner.Top(ctx, key, orgID, offset, limit)
}

func (f *failingStore) RankOf(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID) (shared.Rank, error) {
	if f.broken {
		return shared.RankUnranked, errConnRefused
	}
	return f.inner.RankOf(ctx, key, orgID, userID)
}

func (f *failingStore) Around(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID, radius int) ([]progression.LeaderboardEntry, error) {
	if f.broken {
		return nil, errConnRefused
	}
	return f.inner.Around(ctx, key, orgID, userID, radius)
}

func (f *failingStore) Rebuild(ctx context.Context, orgID shared.OrgID, entries []progression.LeaderboardEntry) error {
	if f.broken {
		return errConnRefused
	}
	return f.inner.Rebuild(ctx, orgID, entries)
}

func (f *failingStore) Size(ctx context.Context, orgID shared.OrgID) (int, error) {
	if f.broken {
		return 0, errConnRefused
	}
	return f.inner.Size(ctx, orgID)
}

const guardTestUser = "3f2c8a1e-5b4d-4e6f-9a0b-1c2d3e4f5a6b"

func TestGuardedStore_WriteFailuresAreSwallowed(t *testing.T) {
	store := &failingStore{inner: memory.NewLeaderboardStore(), broken: true}
	guarded := NewGuardedLeaderboardStore(store, nil, nil)

	err := guarded.UpdateScore(context.Background(), shared.GlobalOrg, guardTestUser,
		progression.LeaderboardScore{Points: 100})

	assert.NoError(t, err)
}

func TestGuardedStore_OpensAfterConsecutiveFailures(t *testing.T) {
	store := &failingStore{inner: memory.NewLeaderboardStore(), broken: true}
	breaker := circuitbreaker.New("redis-test", circuitbreaker.WithFailureThreshold(3))
	guarded := NewGuardedLeaderboardStore(store, breaker, nil)

	for i := 0; i < 3; i++ {
		_, err := guarded.Size(context.Background(), shared.GlobalOrg)
		assert.Error(t, err)
	}

	assert.Equal(t, circuitbreaker.StateOpen, guarded.State())

	_, err := guarded.Top(context.Background(), progression.RankByPoints, shared.GlobalOrg, 0, 10)
	assert.True(t, shared.IsStoreUnavailable(err))
}

func TestGuardedStore_PassesThroughWhenHealthy(t *testing.T) {
	store := &failingStore{inner: memory.NewLeaderboardStore()}
	guarded := NewGuardedLeaderboardStore(store, nil, nil)

	ctx := context.Background()
	assert.NoError(t, guarded.UpdateScore(ctx, shared.GlobalOrg, guardTestUser,
		progression.LeaderboardScore{Points: 250, Level: 2, Streak: 4}))

	rank, err := guarded.RankOf(ctx, progression.RankByPoints, shared.GlobalOrg, guardTestUser)
	assert.NoError(t, err)
	assert.Equal(t, shared.Rank(1), rank)

	top, err := guarded.Top(ctx, progression.RankByStreak, shared.GlobalOrg, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, top, 1)
	assert.Equal(t, 4, top[0].Score.Streak)
}
