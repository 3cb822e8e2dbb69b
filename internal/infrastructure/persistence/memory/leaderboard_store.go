package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// LeaderboardStore is an in-memory progression.LeaderboardStore.
// One score snapshot per user serves all ranking keys.
type LeaderboardStore struct {
	mu     sync.RWMutex
	scores map[shared.OrgID]map[shared.UserID]progression.LeaderboardScore
}

// NewLeaderboardStore creates an empty in-memory leaderboard.
func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		scores: make(map[shared.OrgID]map[shared.UserID]progression.LeaderboardScore),
	}
}

// UpdateScore upserts a user's score snapshot in the ranking scope.
func (s *LeaderboardStore) UpdateScore(ctx context.Context, orgID shared.OrgID, userID shared.UserID, score progression.LeaderboardScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, ok := s.scores[orgID]
	if !ok {
		board = make(map[shared.UserID]progression.LeaderboardScore)
		s.scores[orgID] = board
	}
	board[userID] = score
	return nil
}

// Top returns a page of the ranking, best first.
func (s *LeaderboardStore) Top(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, offset, limit int) ([]progression.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := s.ranked(key, orgID)
	if offset >= len(ranked) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end], nil
}

// RankOf returns the user's position or shared.RankUnranked.
func (s *LeaderboardStore) RankOf(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID) (shared.Rank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.ranked(key, orgID) {
		if e.UserID == userID {
			return e.Rank, nil
		}
	}
	return shared.RankUnranked, nil
}

// Around returns entries centered on the user.
func (s *LeaderboardStore) Around(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID, radius int) ([]progression.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := s.ranked(key, orgID)
	center := -1
	for i, e := range ranked {
		if e.UserID == userID {
			center = i
			break
		}
	}
	if center < 0 {
		return nil, nil
	}

	lo := center - radius
	if lo < 0 {
		lo = 0
	}
	hi := center + radius + 1
	if hi > len(ranked) {
		hi = len(ranked)
	}
	return ranked[lo:hi], nil
}

// Rebuild replaces the whole ranking scope.
func (s *LeaderboardStore) Rebuild(ctx context.Context, orgID shared.OrgID, entries []progression.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := make(map[shared.UserID]progression.LeaderboardScore, len(entries))
	for _, e := range entries {
		board[e.UserID] = e.Score
	}
	s.scores[orgID] = board
	return nil
}

// Size returns the number of ranked users.
func (s *LeaderboardStore) Size(ctx context.Context, orgID shared.OrgID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.scores[orgID]), nil
}

// ranked materializes the ordered board. Callers hold the lock.
func (s *LeaderboardStore) ranked(key progression.RankingKey, orgID shared.OrgID) []progression.LeaderboardEntry {
	board := s.scores[orgID]
	out := make([]progression.LeaderboardEntry, 0, len(board))
	for userID, score := range board {
		out = append(out, progression.LeaderboardEntry{
			UserID: userID,
			Score:  score,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].Score.ValueFor(key), out[j].Score.ValueFor(key)
		if vi != vj {
			return vi > vj
		}
		return out[i].UserID < out[j].UserID
	})
	for i := range out {
		out[i].Rank = shared.Rank(i + 1)
	}
	return out
}
