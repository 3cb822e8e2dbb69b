package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

func TestNewUserProgression_StartsAtZero(t *testing.T) {
	p := newTestProgression(t)

	assert.Equal(t, Points(0), p.TotalPoints)
	assert.Equal(t, Level(1), p.CurrentLevel)
	assert.Equal(t, 0, p.Streak)
	assert.True(t, p.LastActiveDate.IsZero())
	assert.Empty(t, p.Badges)
	assert.Empty(t, p.Achievements)
	assert.Empty(t, p.PointHistory)
}

func TestNewUserProgression_RejectsInvalidIDs(t *testing.T) {
	_, err := NewUserProgression("not-a-uuid", "reef-academy")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
	assert.True(t, shared.IsValidation(err))

	_, err = NewUserProgression(
		shared.UserID("3f2c8a1e-5b4d-4e6f-9a0b-1c2d3e4f5a6b"),
		shared.OrgID("Bad Org!"),
	)
	assert.Error(t, err)
}

func TestIncrementStat_RejectsUnknownAndNegative(t *testing.T) {
	p := newTestProgression(t)

	assert.ErrorIs(t, p.IncrementStat("bogus", 1), ErrUnknownStat)
	assert.Error(t, p.IncrementStat(StatQuizzesTaken, -1))
	assert.NoError(t, p.IncrementStat(StatQuizzesTaken, 3))
	assert.Equal(t, 3, p.Stat(StatQuizzesTaken))
}

func TestClone_IsDeep(t *testing.T) {
	p := newTestProgression(t)
	ledger := NewLedger()

	assert.NoError(t, p.IncrementStat(StatLessonsCompleted, 2))
	_, err := ledger.Award(p, 50, "lesson_completed")
	assert.NoError(t, err)

	clone := p.Clone()
	assert.NoError(t, clone.IncrementStat(StatLessonsCompleted, 10))
	_, err = ledger.Award(clone, 500, "bulk")
	assert.NoError(t, err)

	// The original must not observe the clone's mutations.
	assert.Equal(t, 2, p.Stat(StatLessonsCompleted))
	assert.Equal(t, Points(50), p.TotalPoints)
	assert.Len(t, p.PointHistory, 1)

	assert.Equal(t, 12, clone.Stat(StatLessonsCompleted))
	assert.Equal(t, Points(550), clone.TotalPoints)
}

func TestProcessedEvents_GuardAndClone(t *testing.T) {
	p := newTestProgression(t)

	assert.False(t, p.HasProcessedEvent("evt-1"))
	p.MarkEventProcessed("evt-1", time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	assert.True(t, p.HasProcessedEvent("evt-1"))

	// The empty key never matches, marking it is a no-op.
	assert.False(t, p.HasProcessedEvent(""))
	p.MarkEventProcessed("", time.Now())
	assert.False(t, p.HasProcessedEvent(""))

	clone := p.Clone()
	clone.MarkEventProcessed("evt-2", time.Now())
	assert.True(t, clone.HasProcessedEvent("evt-1"))
	assert.False(t, p.HasProcessedEvent("evt-2"))
}

func TestBadgeID_Format(t *testing.T) {
	assert.True(t, BadgeID("REEF_EXPLORER").IsValid())
	assert.True(t, BadgeID("QUIZ_MASTER_2").IsValid())
	assert.False(t, BadgeID("reef_explorer").IsValid())
	assert.False(t, BadgeID("R").IsValid())
	assert.False(t, BadgeID("BAD BADGE").IsValid())
}
