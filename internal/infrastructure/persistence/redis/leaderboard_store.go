package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD STORE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserIDEmpty is returned when an empty user ID is provided.
	ErrUserIDEmpty = errors.New("leaderboard_store: user ID cannot be empty")

	// ErrInvalidRangeParams is returned when invalid range parameters are provided.
	ErrInvalidRangeParams = errors.New("leaderboard_store: invalid range parameters")
)

// storeErr classifies a Redis transport failure as a store outage so the
// query layer can fall back to the relational source instead of failing.
func storeErr(op string, err error) error {
	return shared.WrapError("leaderboard", op, shared.ErrStoreUnavailable, "redis command failed", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD STORE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardStore implements progression.LeaderboardStore on Redis Sorted Sets.
//
// Architecture:
//   - Sorted Set "leaderboard:{key}:{scope}" per ranking key stores
//     userID -> ranking value (points, streak or level)
//   - Hash "leaderboard:info:{scope}" stores userID -> score snapshot JSON
//
// The empty org maps to the "global" scope. Rank lookups are O(log N),
// range queries are O(log N + M).
type LeaderboardStore struct {
	cache *Cache
}

// NewLeaderboardStore creates a new LeaderboardStore instance.
func NewLeaderboardStore(cache *Cache) *LeaderboardStore {
	return &LeaderboardStore{cache: cache}
}

var _ progression.LeaderboardStore = (*LeaderboardStore)(nil)

// scoreInfo is the hash payload holding the full score snapshot.
type scoreInfo struct {
	Points int `json:"points"`
	Level  int `json:"level"`
	Streak int `json:"streak"`
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateScore upserts a user's snapshot across all ranking keys of the scope.
func (l *LeaderboardStore) UpdateScore(ctx context.Context, orgID shared.OrgID, userID shared.UserID, score progression.LeaderboardScore) error {
	if userID.IsEmpty() {
		return ErrUserIDEmpty
	}

	info, err := json.Marshal(scoreInfo{
		Points: int(score.Points),
		Level:  int(score.Level),
		Streak: score.Streak,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	pipe := l.cache.Client().Pipeline()
	for _, key := range progression.AllRankingKeys() {
		pipe.ZAdd(ctx, LeaderboardKey(key.String(), orgID.String()), redis.Z{
			Score:  float64(score.ValueFor(key)),
			Member: userID.String(),
		})
	}
	pipe.HSet(ctx, LeaderboardInfoKey(orgID.String()), userID.String(), info)

	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("UpdateScore", err)
	}
	return nil
}

// Rebuild replaces all rankings of the scope with the given entries.
// Delete and re-insert run in a single MULTI/EXEC so readers never
// observe a half-built ranking.
func (l *LeaderboardStore) Rebuild(ctx context.Context, orgID shared.OrgID, entries []progression.LeaderboardEntry) error {
	infoKey := LeaderboardInfoKey(orgID.String())

	pipe := l.cache.Client().TxPipeline()

	keys := []string{infoKey}
	for _, key := range progression.AllRankingKeys() {
		keys = append(keys, LeaderboardKey(key.String(), orgID.String()))
	}
	pipe.Del(ctx, keys...)

	if len(entries) > 0 {
		infos := make(map[string]interface{}, len(entries))
		for _, key := range progression.AllRankingKeys() {
			members := make([]redis.Z, 0, len(entries))
			for _, e := range entries {
				if e.UserID.IsEmpty() {
					continue
				}
				members = append(members, redis.Z{
					Score:  float64(e.Score.ValueFor(key)),
					Member: e.UserID.String(),
				})
			}
			if len(members) > 0 {
				pipe.ZAdd(ctx, LeaderboardKey(key.String(), orgID.String()), members...)
			}
		}
		for _, e := range entries {
			if e.UserID.IsEmpty() {
				continue
			}
			data, err := json.Marshal(scoreInfo{
				Points: int(e.Score.Points),
				Level:  int(e.Score.Level),
				Streak: e.Score.Streak,
			})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
			}
			infos[e.UserID.String()] = data
		}
		if len(infos) > 0 {
			pipe.HSet(ctx, infoKey, infos)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("Rebuild", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Top returns a page of the ranking ordered by the ranking key, descending.
func (l *LeaderboardStore) Top(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, offset, limit int) ([]progression.LeaderboardEntry, error) {
	if offset < 0 || limit <= 0 {
		return nil, ErrInvalidRangeParams
	}

	start := int64(offset)
	stop := start + int64(limit) - 1

	ids, err := l.cache.Client().ZRevRange(ctx, LeaderboardKey(key.String(), orgID.String()), start, stop).Result()
	if err != nil {
		return nil, storeErr("Top", err)
	}

	return l.toEntries(ctx, orgID, ids, start+1)
}

// RankOf returns the 1-based position of a user for the ranking key.
// Returns shared.RankUnranked if the user is not present.
func (l *LeaderboardStore) RankOf(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID) (shared.Rank, error) {
	if userID.IsEmpty() {
		return shared.RankUnranked, ErrUserIDEmpty
	}

	rank, err := l.cache.Client().ZRevRank(ctx, LeaderboardKey(key.String(), orgID.String()), userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.RankUnranked, nil
		}
		return shared.RankUnranked, storeErr("RankOf", err)
	}

	return shared.Rank(rank + 1), nil
}

// Around returns the window of entries surrounding a user, the user included.
func (l *LeaderboardStore) Around(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID, radius int) ([]progression.LeaderboardEntry, error) {
	if userID.IsEmpty() {
		return nil, ErrUserIDEmpty
	}
	if radius < 0 {
		return nil, ErrInvalidRangeParams
	}

	rank, err := l.RankOf(ctx, key, orgID, userID)
	if err != nil {
		return nil, err
	}
	if rank == shared.RankUnranked {
		return []progression.LeaderboardEntry{}, nil
	}

	// 0-based indices for ZRevRange
	start := int64(rank) - 1 - int64(radius)
	if start < 0 {
		start = 0
	}
	stop := int64(rank) - 1 + int64(radius)

	ids, err := l.cache.Client().ZRevRange(ctx, LeaderboardKey(key.String(), orgID.String()), start, stop).Result()
	if err != nil {
		return nil, storeErr("Around", err)
	}

	return l.toEntries(ctx, orgID, ids, start+1)
}

// Size returns the number of members in the ranking scope.
func (l *LeaderboardStore) Size(ctx context.Context, orgID shared.OrgID) (int, error) {
	count, err := l.cache.Client().ZCard(ctx, LeaderboardKey(progression.RankByPoints.String(), orgID.String())).Result()
	if err != nil {
		return 0, storeErr("Size", err)
	}
	return int(count), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// toEntries converts sorted-set members into domain entries, attaching
// score snapshots from the info hash. firstRank is the 1-based rank of
// the first member in the slice.
func (l *LeaderboardStore) toEntries(ctx context.Context, orgID shared.OrgID, ids []string, firstRank int64) ([]progression.LeaderboardEntry, error) {
	if len(ids) == 0 {
		return []progression.LeaderboardEntry{}, nil
	}

	infos, err := l.cache.Client().HMGet(ctx, LeaderboardInfoKey(orgID.String()), ids...).Result()
	if err != nil {
		return nil, storeErr("Top", err)
	}

	entries := make([]progression.LeaderboardEntry, 0, len(ids))
	for i, id := range ids {
		var info scoreInfo
		if i < len(infos) && infos[i] != nil {
			if s, ok := infos[i].(string); ok {
				// A missing snapshot leaves the zero value; rank order
				// still comes from the sorted set.
				_ = json.Unmarshal([]byte(s), &info)
			}
		}

		entries = append(entries, progression.LeaderboardEntry{
			Rank:   shared.Rank(firstRank + int64(i)),
			UserID: shared.UserID(id),
			Score: progression.LeaderboardScore{
				Points: progression.Points(info.Points),
				Level:  progression.Level(info.Level),
				Streak: info.Streak,
			},
		})
	}

	return entries, nil
}
