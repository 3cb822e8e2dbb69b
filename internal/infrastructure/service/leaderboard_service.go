// Package service contains infrastructure-level services that compose
// persistence adapters with resilience primitives.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/pkg/circuitbreaker"
	"github.com/reefacademy/progression-hub/pkg/logger"
)

// GuardedLeaderboardStore wraps a LeaderboardStore with a circuit breaker.
// Score writes are best-effort: when Redis is down the write is dropped and
// the breaker keeps subsequent event processing from blocking on a dead
// connection. Reads surface shared.ErrStoreUnavailable so the interface
// layer can answer 503.
type GuardedLeaderboardStore struct {
	inner   progression.LeaderboardStore
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

var _ progression.LeaderboardStore = (*GuardedLeaderboardStore)(nil)

// NewGuardedLeaderboardStore creates a guarded store. If breaker is nil a
// Redis-tuned breaker is created. logger may be nil.
func NewGuardedLeaderboardStore(inner progression.LeaderboardStore, breaker *circuitbreaker.CircuitBreaker, log *logger.Logger) *GuardedLeaderboardStore {
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("leaderboard_guard"))

	if breaker == nil {
		breaker = circuitbreaker.RedisBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
	}

	return &GuardedLeaderboardStore{
		inner:   inner,
		breaker: breaker,
		log:     log,
	}
}

// UpdateScore writes the score through the breaker. A rejected or failed
// write is logged and swallowed; rankings catch up on the next write or
// the scheduled rebuild.
func (s *GuardedLeaderboardStore) UpdateScore(ctx context.Context, orgID shared.OrgID, userID shared.UserID, score progression.LeaderboardScore) error {
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.inner.UpdateScore(ctx, orgID, userID, score)
	})
	if err != nil {
		s.log.Warn("score update dropped",
			logger.UserID(userID.String()),
			logger.OrgID(orgID.String()),
			logger.Err(err),
		)
	}
	return nil
}

// Top reads the ranking page through the breaker.
func (s *GuardedLeaderboardStore) Top(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, offset, limit int) ([]progression.LeaderboardEntry, error) {
	var entries []progression.LeaderboardEntry
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		entries, innerErr = s.inner.Top(ctx, key, orgID, offset, limit)
		return innerErr
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return entries, nil
}

// RankOf reads a user's position through the breaker.
func (s *GuardedLeaderboardStore) RankOf(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID) (shared.Rank, error) {
	var rank shared.Rank
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		rank, innerErr = s.inner.RankOf(ctx, key, orgID, userID)
		return innerErr
	})
	if err != nil {
		return shared.RankUnranked, s.wrap(err)
	}
	return rank, nil
}

// Around reads the window around a user through the breaker.
func (s *GuardedLeaderboardStore) Around(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID, radius int) ([]progression.LeaderboardEntry, error) {
	var entries []progression.LeaderboardEntry
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		entries, innerErr = s.inner.Around(ctx, key, orgID, userID, radius)
		return innerErr
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return entries, nil
}

// Rebuild replaces a scope's rankings through the breaker. Unlike score
// writes, a failed rebuild is reported so the job can record it.
func (s *GuardedLeaderboardStore) Rebuild(ctx context.Context, orgID shared.OrgID, entries []progression.LeaderboardEntry) error {
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.inner.Rebuild(ctx, orgID, entries)
	})
	if err != nil {
		return s.wrap(err)
	}
	return nil
}

// Size reads the scope population through the breaker.
func (s *GuardedLeaderboardStore) Size(ctx context.Context, orgID shared.OrgID) (int, error) {
	var size int
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		size, innerErr = s.inner.Size(ctx, orgID)
		return innerErr
	})
	if err != nil {
		return 0, s.wrap(err)
	}
	return size, nil
}

// State exposes the breaker state for health checks.
func (s *GuardedLeaderboardStore) State() circuitbreaker.State {
	return s.breaker.State()
}

func (s *GuardedLeaderboardStore) wrap(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return fmt.Errorf("leaderboard: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return err
}
