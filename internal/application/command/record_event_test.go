package command

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

const testUserID = "3f2c8a1e-5b4d-4e6f-9a0b-1c2d3e4f5a6b"

func newTestStack(t *testing.T) (*memory.ProgressionRepo, *memory.LeaderboardStore, *RecordEventHandler) {
	t.Helper()

	repo := memory.NewProgressionRepo()
	board := memory.NewLeaderboardStore()
	handler := NewRecordEventHandler(repo, board, progression.DefaultCatalog(), nil)

	register := NewRegisterUserHandler(repo, nil)
	_, err := register.Handle(context.Background(), RegisterUserCommand{
		UserID: testUserID,
		OrgID:  "reef-academy",
	})
	assert.NoError(t, err)

	return repo, board, handler
}

func TestRecordEvent_LessonAwardsPointsAndFirstSplash(t *testing.T) {
	repo, _, handler := newTestStack(t)

	res, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: testUserID,
		Type:   "lesson_completed",
	})

	assert.NoError(t, err)
	// 50 base points plus the 10-point FIRST_SPLASH reward.
	assert.Equal(t, 60, res.PointsAwarded)
	assert.Equal(t, 60, res.TotalPoints)
	assert.Equal(t, 1, res.Level)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.StreakExtended)
	assert.Len(t, res.AchievementsUnlocked, 1)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, progression.Points(60), stored.TotalPoints)
	assert.True(t, stored.HasAchievement(progression.AchievementFirstSplash))
	assert.Len(t, stored.PointHistory, 2)
}

func TestRecordEvent_UnknownTypeRejected(t *testing.T) {
	_, _, handler := newTestStack(t)

	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: testUserID,
		Type:   "mystery_event",
	})

	assert.ErrorIs(t, err, progression.ErrUnknownEventType)
}

func TestRecordEvent_UnregisteredUserRejected(t *testing.T) {
	_, _, handler := newTestStack(t)

	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: "9b8c7d6e-5f4a-3b2c-1d0e-9f8a7b6c5d4e",
		Type:   "lesson_completed",
	})

	assert.True(t, shared.IsNotFound(err))
}

func TestRecordEvent_PerfectQuizCountsBothStats(t *testing.T) {
	repo, _, handler := newTestStack(t)

	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:    testUserID,
		Type:      "quiz_scored",
		QuizScore: 100,
		IsPerfect: true,
	})
	assert.NoError(t, err)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, 1, stored.Stat(progression.StatQuizzesTaken))
	assert.Equal(t, 1, stored.Stat(progression.StatPerfectQuizzes))
	assert.True(t, stored.HasAchievement(progression.AchievementPerfectDive))
}

func TestRecordEvent_TimeLoggedMovesNoStreak(t *testing.T) {
	repo, _, handler := newTestStack(t)

	res, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:  testUserID,
		Type:    "time_logged",
		Minutes: 45,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, res.Streak)
	assert.False(t, res.StreakExtended)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, 45, stored.Stat(progression.StatTimeSpent))
	assert.True(t, stored.LastActiveDate.IsZero())
}

func TestRecordEvent_StreakAcrossDays(t *testing.T) {
	_, _, handler := newTestStack(t)

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := handler.Handle(context.Background(), RecordEventCommand{
			UserID:    testUserID,
			Type:      "daily_login",
			Timestamp: base.AddDate(0, 0, i),
		})
		assert.NoError(t, err)
		assert.Equal(t, i+1, res.Streak)
	}

	// A three-day gap resets the streak to one.
	res, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:    testUserID,
		Type:      "daily_login",
		Timestamp: base.AddDate(0, 0, 6),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.StreakBroken)
}

func TestRecordEvent_BackdatedEventRejectedWithoutSideEffects(t *testing.T) {
	repo, _, handler := newTestStack(t)

	day1 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:    testUserID,
		Type:      "daily_login",
		Timestamp: day1,
	})
	assert.NoError(t, err)

	before, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)

	_, err = handler.Handle(context.Background(), RecordEventCommand{
		UserID:    testUserID,
		Type:      "daily_login",
		Timestamp: day1.AddDate(0, 0, -1),
	})
	assert.ErrorIs(t, err, progression.ErrClockSkew)

	// The failed event must leave no trace: no points, no history entry.
	after, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, before.TotalPoints, after.TotalPoints)
	assert.Len(t, after.PointHistory, len(before.PointHistory))
	assert.Equal(t, before.Streak, after.Streak)
}

func TestRecordEvent_ClientFaultsClassifyAsValidation(t *testing.T) {
	_, _, handler := newTestStack(t)

	day1 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:    testUserID,
		Type:      "daily_login",
		Timestamp: day1,
	})
	assert.NoError(t, err)

	// Every fault caused by the caller must carry a validation kind so
	// the HTTP layer answers 400 instead of 500.
	cases := map[string]RecordEventCommand{
		"unknown type":   {UserID: testUserID, Type: "mystery_event"},
		"negative score": {UserID: testUserID, Type: "quiz_scored", QuizScore: -5},
		"bad minutes":    {UserID: testUserID, Type: "time_logged", Minutes: -1},
		"missing user":   {Type: "lesson_completed"},
		"backdated":      {UserID: testUserID, Type: "daily_login", Timestamp: day1.AddDate(0, 0, -1)},
	}
	for name, cmd := range cases {
		_, err := handler.Handle(context.Background(), cmd)
		assert.Error(t, err, name)
		assert.True(t, shared.IsValidation(err), "%s: got %v", name, err)
	}
}

func TestRecordEvent_LevelGatedAchievementUnlocksSameCall(t *testing.T) {
	repo, _, handler := newTestStack(t)

	// One submission satisfies the citizen-science requirement long
	// before level 5 is in reach.
	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: testUserID,
		Type:   "citizen_science_submitted",
	})
	assert.NoError(t, err)

	// Grind lessons until one call crosses level 5. OCEAN_AMBASSADOR
	// must appear in that same call's result, not the next one.
	var crossing *RecordEventResult
	for i := 0; i < 30; i++ {
		res, err := handler.Handle(context.Background(), RecordEventCommand{
			UserID: testUserID,
			Type:   "lesson_completed",
		})
		assert.NoError(t, err)
		if res.Level >= 5 {
			crossing = res
			break
		}
	}
	assert.NotNil(t, crossing)
	assert.True(t, crossing.LeveledUp)

	found := false
	for _, a := range crossing.AchievementsUnlocked {
		if a.AchievementID == progression.AchievementOceanAmbassador {
			found = true
		}
	}
	assert.True(t, found, "level-gated achievement missing from the crossing call: %+v", crossing.AchievementsUnlocked)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.True(t, stored.HasAchievement(progression.AchievementOceanAmbassador))
}

func TestRecordEvent_DuplicateDeliveryAppliesOnce(t *testing.T) {
	repo, _, handler := newTestStack(t)

	first, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:  testUserID,
		Type:    "lesson_completed",
		EventID: "evt-2026-04-01-0001",
	})
	assert.NoError(t, err)
	assert.Equal(t, 60, first.TotalPoints)
	assert.False(t, first.Replayed)

	// Redelivery of the same event ID reports current state, no effects.
	again, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:  testUserID,
		Type:    "lesson_completed",
		EventID: "evt-2026-04-01-0001",
	})
	assert.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, 0, again.PointsAwarded)
	assert.Equal(t, 60, again.TotalPoints)
	assert.Empty(t, again.BadgesAwarded)
	assert.Empty(t, again.AchievementsUnlocked)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, progression.Points(60), stored.TotalPoints)
	assert.Len(t, stored.PointHistory, 2)
	assert.Equal(t, 1, stored.Stat(progression.StatLessonsCompleted))

	// A fresh event ID applies normally.
	next, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID:  testUserID,
		Type:    "lesson_completed",
		EventID: "evt-2026-04-01-0002",
	})
	assert.NoError(t, err)
	assert.False(t, next.Replayed)
	assert.Equal(t, 110, next.TotalPoints)
}

func TestRecordEvent_MilestoneBonusGrantedOnce(t *testing.T) {
	repo, _, handler := newTestStack(t)

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		_, err := handler.Handle(context.Background(), RecordEventCommand{
			UserID:    testUserID,
			Type:      "daily_login",
			Timestamp: base.AddDate(0, 0, i),
		})
		assert.NoError(t, err)
	}

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.True(t, stored.HasBadge(progression.BadgeStreakKeeper, progression.TierBronze))

	bonuses := 0
	for _, e := range stored.PointHistory {
		if e.Reason == "streak_milestone:7" {
			bonuses++
		}
	}
	assert.Equal(t, 1, bonuses)
}

func TestRecordEvent_LevelUpEmitted(t *testing.T) {
	_, _, handler := newTestStack(t)

	// Two lessons put the total past the 100-point threshold.
	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: testUserID,
		Type:   "lesson_completed",
	})
	assert.NoError(t, err)

	res, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: testUserID,
		Type:   "lesson_completed",
	})
	assert.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.Level)
	assert.Equal(t, 1, res.PreviousLevel)
}

func TestRecordEvent_LeaderboardRefreshed(t *testing.T) {
	_, board, handler := newTestStack(t)

	_, err := handler.Handle(context.Background(), RecordEventCommand{
		UserID: testUserID,
		Type:   "lesson_completed",
	})
	assert.NoError(t, err)

	rank, err := board.RankOf(context.Background(), progression.RankByPoints, shared.OrgID("reef-academy"), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, shared.Rank(1), rank)

	rank, err = board.RankOf(context.Background(), progression.RankByPoints, shared.GlobalOrg, shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, shared.Rank(1), rank)
}

func TestRecordEvent_ConcurrentEventsLoseNothing(t *testing.T) {
	repo, _, handler := newTestStack(t)

	const workers = 16

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = handler.Handle(context.Background(), RecordEventCommand{
				UserID: testUserID,
				Type:   "species_identified",
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, workers, stored.Stat(progression.StatSpeciesIdentified))

	// 16 events x 15 points, one bronze SPECIES_SPOTTER (+25) at ten sightings.
	assert.Equal(t, progression.Points(16*15+25), stored.TotalPoints)
	assert.True(t, stored.HasBadge(progression.BadgeSpeciesSpotter, progression.TierBronze))
}
