package jobs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
)

func seedProgression(t *testing.T, repo *memory.ProgressionRepo, userID string, orgID shared.OrgID, points int) {
	t.Helper()

	p, err := progression.NewUserProgression(shared.UserID(userID), orgID)
	assert.NoError(t, err)
	p.TotalPoints = progression.Points(points)
	assert.NoError(t, repo.Create(context.Background(), p))
}

func TestRebuildLeaderboard_RebuildsOrgAndGlobalScopes(t *testing.T) {
	repo := memory.NewProgressionRepo()
	board := memory.NewLeaderboardStore()

	orgA := shared.OrgID("reef-academy")
	orgB := shared.OrgID("coral-school")
	seedProgression(t, repo, "1a111111-1111-4111-8111-111111111111", orgA, 300)
	seedProgression(t, repo, "2b222222-2222-4222-8222-222222222222", orgA, 150)
	seedProgression(t, repo, "3c333333-3333-4333-8333-333333333333", orgB, 500)

	job := NewRebuildLeaderboardJob(repo, board, nil, nil, DefaultRebuildLeaderboardConfig())
	assert.NoError(t, job.Run(context.Background()))

	orgTop, err := board.Top(context.Background(), progression.RankByPoints, orgA, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, orgTop, 2)
	assert.Equal(t, progression.Points(300), orgTop[0].Score.Points)

	globalTop, err := board.Top(context.Background(), progression.RankByPoints, shared.GlobalOrg, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, globalTop, 3)
	assert.Equal(t, shared.UserID("3c333333-3333-4333-8333-333333333333"), globalTop[0].UserID)

	stats := job.LastStats()
	assert.NotNil(t, stats)
	assert.Equal(t, 3, stats.TotalUsers)
	// orgA, orgB and the global scope.
	assert.Equal(t, 3, stats.ScopesBuilt)
	assert.Empty(t, stats.Errors)
}

func TestRebuildLeaderboard_ReplacesStaleEntries(t *testing.T) {
	repo := memory.NewProgressionRepo()
	board := memory.NewLeaderboardStore()

	orgID := shared.OrgID("reef-academy")
	staleUser := shared.UserID("9d999999-9999-4999-8999-999999999999")
	assert.NoError(t, board.UpdateScore(context.Background(), orgID, staleUser,
		progression.LeaderboardScore{Points: 9000}))

	seedProgression(t, repo, "1a111111-1111-4111-8111-111111111111", orgID, 40)

	job := NewRebuildLeaderboardJob(repo, board, nil, nil, DefaultRebuildLeaderboardConfig())
	assert.NoError(t, job.Run(context.Background()))

	top, err := board.Top(context.Background(), progression.RankByPoints, orgID, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, top, 1)
	assert.NotEqual(t, staleUser, top[0].UserID)
}

func TestRebuildLeaderboard_PagesThroughLargeStores(t *testing.T) {
	repo := memory.NewProgressionRepo()
	board := memory.NewLeaderboardStore()

	orgID := shared.OrgID("reef-academy")
	for i := 0; i < 7; i++ {
		userID := fmt.Sprintf("%08d-0000-4000-8000-000000000000", i+1)
		seedProgression(t, repo, userID, orgID, (i+1)*10)
	}

	config := DefaultRebuildLeaderboardConfig()
	config.BatchSize = 3
	job := NewRebuildLeaderboardJob(repo, board, nil, nil, config)
	assert.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 7, job.LastStats().TotalUsers)

	top, err := board.Top(context.Background(), progression.RankByPoints, orgID, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, top, 7)
	assert.Equal(t, progression.Points(70), top[0].Score.Points)
}
