package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAchievements_BelowThresholdNotUnlocked(t *testing.T) {
	evaluator := NewAchievementEvaluator(DefaultCatalog(), NewLedger())
	p := newTestProgression(t)

	assert.NoError(t, p.IncrementStat(StatLessonsCompleted, 9))

	unlocked, err := evaluator.UnlockQualified(p)

	assert.NoError(t, err)
	// FIRST_SPLASH fires at one lesson, REEF_SCHOLAR needs ten.
	assert.Len(t, unlocked, 1)
	assert.True(t, p.HasAchievement(AchievementFirstSplash))
	assert.False(t, p.HasAchievement(AchievementReefScholar))
}

func TestAchievements_UnlocksExactlyOnce(t *testing.T) {
	evaluator := NewAchievementEvaluator(DefaultCatalog(), NewLedger())
	p := newTestProgression(t)

	assert.NoError(t, p.IncrementStat(StatLessonsCompleted, 10))

	first, err := evaluator.UnlockQualified(p)
	assert.NoError(t, err)
	assert.Len(t, first, 2)
	assert.True(t, p.HasAchievement(AchievementReefScholar))
	pointsAfterFirst := p.TotalPoints

	// Going further past the threshold must not re-grant anything.
	assert.NoError(t, p.IncrementStat(StatLessonsCompleted, 5))
	second, err := evaluator.UnlockQualified(p)

	assert.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, pointsAfterFirst, p.TotalPoints)
}

func TestAchievements_MultiRequirementNeedsAll(t *testing.T) {
	catalog := DefaultCatalog()
	evaluator := NewAchievementEvaluator(catalog, NewLedger())
	p := newTestProgression(t)

	// Citizen science alone is not enough for OCEAN_AMBASSADOR.
	assert.NoError(t, p.IncrementStat(StatCitizenScience, 1))
	_, err := evaluator.UnlockQualified(p)
	assert.NoError(t, err)
	assert.False(t, p.HasAchievement(AchievementOceanAmbassador))

	p.CurrentLevel = 5
	unlocked, err := evaluator.UnlockQualified(p)
	assert.NoError(t, err)
	assert.True(t, p.HasAchievement(AchievementOceanAmbassador))
	assert.Len(t, unlocked, 1)
}

func TestAchievements_BadgeCountRequirement(t *testing.T) {
	catalog := DefaultCatalog()
	ledger := NewLedger()
	awarder := NewBadgeAwarder(catalog, ledger)
	evaluator := NewAchievementEvaluator(catalog, ledger)
	p := newTestProgression(t)

	// Two platinum-track counters give six tiers in total.
	assert.NoError(t, p.IncrementStat(StatLessonsCompleted, 50))
	assert.NoError(t, p.IncrementStat(StatSpeciesIdentified, 100))

	awarded, err := awarder.AwardQualified(p)
	assert.NoError(t, err)
	assert.Len(t, awarded, 6)

	_, err = evaluator.UnlockQualified(p)
	assert.NoError(t, err)
	assert.True(t, p.HasAchievement(AchievementWellRounded))
}

func TestAchievements_RewardRecordedInHistory(t *testing.T) {
	evaluator := NewAchievementEvaluator(DefaultCatalog(), NewLedger())
	p := newTestProgression(t)

	assert.NoError(t, p.IncrementStat(StatPerfectQuizzes, 1))

	unlocked, err := evaluator.UnlockQualified(p)
	assert.NoError(t, err)
	assert.Len(t, unlocked, 1)

	assert.Equal(t, Points(25), p.TotalPoints)
	assert.Equal(t, "achievement:PERFECT_DIVE", p.PointHistory[0].Reason)
}
