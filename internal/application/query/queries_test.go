package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/application/command"
	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
)

var testUsers = []string{
	"11111111-1111-4111-8111-111111111111",
	"22222222-2222-4222-8222-222222222222",
	"33333333-3333-4333-8333-333333333333",
}

func seedStack(t *testing.T) (*memory.ProgressionRepo, *memory.LeaderboardStore) {
	t.Helper()

	repo := memory.NewProgressionRepo()
	board := memory.NewLeaderboardStore()
	catalog := progression.DefaultCatalog()

	register := command.NewRegisterUserHandler(repo, nil)
	events := command.NewRecordEventHandler(repo, board, catalog, nil)

	for i, id := range testUsers {
		_, err := register.Handle(context.Background(), command.RegisterUserCommand{
			UserID: id,
			OrgID:  "reef-academy",
		})
		assert.NoError(t, err)

		// Each user completes a different number of lessons.
		for j := 0; j <= i; j++ {
			_, err := events.Handle(context.Background(), command.RecordEventCommand{
				UserID: id,
				Type:   "lesson_completed",
			})
			assert.NoError(t, err)
		}
	}

	return repo, board
}

func TestGetProgression_ReturnsSnapshot(t *testing.T) {
	repo, board := seedStack(t)
	handler := NewGetProgressionHandler(repo, board, progression.DefaultCatalog())

	res, err := handler.Handle(context.Background(), GetProgressionQuery{
		UserID:      testUsers[0],
		IncludeRank: true,
	})

	assert.NoError(t, err)
	// One lesson: 50 base + 10 FIRST_SPLASH.
	assert.Equal(t, 60, res.TotalPoints)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 40, res.PointsToNextLevel)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 1, res.Stats["lessonsCompleted"])
	assert.Len(t, res.Achievements, 1)
	assert.Equal(t, 3, res.Rank)
	assert.NotEmpty(t, res.LastActiveDate)
}

func TestGetProgression_UnknownUser(t *testing.T) {
	repo, board := seedStack(t)
	handler := NewGetProgressionHandler(repo, board, progression.DefaultCatalog())

	_, err := handler.Handle(context.Background(), GetProgressionQuery{
		UserID: "99999999-9999-4999-8999-999999999999",
	})

	assert.True(t, shared.IsNotFound(err))
}

func TestGetLeaderboard_TopOrdering(t *testing.T) {
	_, board := seedStack(t)
	handler := NewGetLeaderboardHandler(board)

	res, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		OrgID: "reef-academy",
		Limit: 2,
	})

	assert.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.Equal(t, 3, res.TotalCount)
	assert.True(t, res.HasMore)

	// Most lessons means most points means first place.
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, testUsers[2], res.Entries[0].UserID)
	assert.GreaterOrEqual(t, res.Entries[0].Points, res.Entries[1].Points)
}

func TestGetLeaderboard_GlobalScope(t *testing.T) {
	_, board := seedStack(t)
	handler := NewGetLeaderboardHandler(board)

	res, err := handler.Handle(context.Background(), GetLeaderboardQuery{})

	assert.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Len(t, res.Entries, 3)
	assert.False(t, res.HasMore)
}

func TestGetLeaderboard_AroundUser(t *testing.T) {
	_, board := seedStack(t)
	handler := NewGetLeaderboardHandler(board)

	res, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		OrgID:        "reef-academy",
		AroundUserID: testUsers[1],
		Radius:       1,
	})

	assert.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, testUsers[1], res.Entries[1].UserID)
}

func TestGetLeaderboard_RankByLevel(t *testing.T) {
	_, board := seedStack(t)
	handler := NewGetLeaderboardHandler(board)

	res, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Key:   "level",
		OrgID: "reef-academy",
	})

	assert.NoError(t, err)
	assert.Equal(t, "level", res.Key)
	assert.Len(t, res.Entries, 3)

	// Users two and three crossed the 100 point line and sit at level 2;
	// user one stays at level 1 and ranks last.
	assert.Equal(t, 2, res.Entries[0].Level)
	assert.Equal(t, testUsers[0], res.Entries[2].UserID)
	assert.Equal(t, 1, res.Entries[2].Level)
}

// unavailableBoard simulates a leaderboard store whose backend is down.
type unavailableBoard struct{}

func (unavailableBoard) UpdateScore(ctx context.Context, orgID shared.OrgID, userID shared.UserID, score progression.LeaderboardScore) error {
	return shared.ErrStoreUnavailable
}

func (unavailableBoard) Top(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, offset, limit int) ([]progression.LeaderboardEntry, error) {
	return nil, shared.ErrStoreUnavailable
}

func (unavailableBoard) RankOf(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID) (shared.Rank, error) {
	return shared.RankUnranked, shared.ErrStoreUnavailable
}

func (unavailableBoard) Around(ctx context.Context, key progression.RankingKey, orgID shared.OrgID, userID shared.UserID, radius int) ([]progression.LeaderboardEntry, error) {
	return nil, shared.ErrStoreUnavailable
}

func (unavailableBoard) Rebuild(ctx context.Context, orgID shared.OrgID, entries []progression.LeaderboardEntry) error {
	return shared.ErrStoreUnavailable
}

func (unavailableBoard) Size(ctx context.Context, orgID shared.OrgID) (int, error) {
	return 0, shared.ErrStoreUnavailable
}

func TestGetLeaderboard_RepositoryFallback(t *testing.T) {
	repo, _ := seedStack(t)
	handler := NewGetLeaderboardHandler(unavailableBoard{}).WithFallback(repo)

	res, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		OrgID: "reef-academy",
		Limit: 2,
	})

	assert.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.True(t, res.HasMore)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, testUsers[2], res.Entries[0].UserID)
	assert.GreaterOrEqual(t, res.Entries[0].Points, res.Entries[1].Points)
}

func TestGetLeaderboard_FallbackOnlyCoversPoints(t *testing.T) {
	repo, _ := seedStack(t)
	handler := NewGetLeaderboardHandler(unavailableBoard{}).WithFallback(repo)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Key:   "streak",
		OrgID: "reef-academy",
	})

	assert.True(t, shared.IsStoreUnavailable(err))
}

func TestGetLeaderboard_InvalidRankingKey(t *testing.T) {
	_, board := seedStack(t)
	handler := NewGetLeaderboardHandler(board)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Key: "xp"})

	assert.ErrorIs(t, err, progression.ErrInvalidRankingKey)
}

func TestGetPointHistory_PaginatesNewestFirst(t *testing.T) {
	repo, _ := seedStack(t)
	handler := NewGetPointHistoryHandler(repo)

	res, err := handler.Handle(context.Background(), GetPointHistoryQuery{
		UserID: testUsers[2],
		Limit:  2,
	})

	assert.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.True(t, res.HasMore)
	assert.True(t, res.Entries[0].Timestamp.After(res.Entries[1].Timestamp) ||
		res.Entries[0].Timestamp.Equal(res.Entries[1].Timestamp))
}

func TestGetPointHistory_OnlyCorrections(t *testing.T) {
	repo, _ := seedStack(t)
	adjust := command.NewAdjustPointsHandler(repo, nil, progression.DefaultCatalog(), nil)

	_, err := adjust.Handle(context.Background(), command.AdjustPointsCommand{
		UserID: testUsers[0],
		Delta:  -5,
		Reason: "duplicate_import",
	})
	assert.NoError(t, err)

	handler := NewGetPointHistoryHandler(repo)
	res, err := handler.Handle(context.Background(), GetPointHistoryQuery{
		UserID:          testUsers[0],
		OnlyCorrections: true,
	})

	assert.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	assert.True(t, res.Entries[0].IsCorrection)
	assert.Equal(t, -5, res.Entries[0].Amount)
}
