package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

func TestDefaultCatalog_IsValid(t *testing.T) {
	assert.NoError(t, DefaultCatalog().Validate())
}

func TestCatalog_RejectsNonAscendingThresholds(t *testing.T) {
	c := DefaultCatalog()
	c.LevelThresholds = []Points{0, 100, 100, 300}

	assert.Error(t, c.Validate())
}

func TestCatalog_RejectsNonZeroFirstThreshold(t *testing.T) {
	c := DefaultCatalog()
	c.LevelThresholds = []Points{50, 100}

	assert.Error(t, c.Validate())
}

func TestCatalog_RejectsEmptyThresholds(t *testing.T) {
	c := DefaultCatalog()
	c.LevelThresholds = nil

	assert.Error(t, c.Validate())
}

func TestCatalog_RejectsBadgeWithNonAscendingTiers(t *testing.T) {
	c := DefaultCatalog()
	c.Badges["BROKEN"] = BadgeDefinition{
		ID:   "BROKEN",
		Name: "Broken",
		Stat: StatLessonsCompleted,
		Tiers: []TierRequirement{
			{Tier: TierBronze, Threshold: 10, PointReward: 10},
			{Tier: TierSilver, Threshold: 5, PointReward: 20},
		},
	}

	assert.ErrorIs(t, c.Validate(), shared.ErrNonAscendingTiers)
}

func TestCatalog_RejectsTiersOutOfOrder(t *testing.T) {
	c := DefaultCatalog()
	c.Badges["BROKEN"] = BadgeDefinition{
		ID:   "BROKEN",
		Name: "Broken",
		Stat: StatLessonsCompleted,
		Tiers: []TierRequirement{
			{Tier: TierSilver, Threshold: 5, PointReward: 10},
			{Tier: TierBronze, Threshold: 10, PointReward: 20},
		},
	}

	assert.ErrorIs(t, c.Validate(), shared.ErrNonAscendingTiers)
}

func TestCatalog_RejectsUnknownTierName(t *testing.T) {
	c := DefaultCatalog()
	c.Badges["BROKEN"] = BadgeDefinition{
		ID:   "BROKEN",
		Name: "Broken",
		Stat: StatLessonsCompleted,
		Tiers: []TierRequirement{
			{Tier: Tier("mythril"), Threshold: 10, PointReward: 10},
		},
	}

	assert.ErrorIs(t, c.Validate(), shared.ErrInvalidTier)
}

func TestCatalog_RejectsAchievementWithoutRequirements(t *testing.T) {
	c := DefaultCatalog()
	c.Achievements["EMPTY"] = AchievementDefinition{
		ID:   "EMPTY",
		Name: "Empty",
	}

	assert.Error(t, c.Validate())
}

func TestCatalog_UnknownEventType(t *testing.T) {
	c := DefaultCatalog()

	_, err := c.Event("unknown_event")
	assert.ErrorIs(t, err, ErrUnknownEventType)

	def, err := c.Event(EventLessonCompleted)
	assert.NoError(t, err)
	assert.Equal(t, Points(50), def.BasePoints)
	assert.True(t, def.StreakRelevant)
}

func TestTier_Ordering(t *testing.T) {
	assert.True(t, TierBronze.Before(TierSilver))
	assert.True(t, TierSilver.Before(TierGold))
	assert.True(t, TierGold.Before(TierPlatinum))
	assert.False(t, TierPlatinum.Before(TierBronze))
	assert.False(t, Tier("mythril").IsValid())
}

func TestRequirement_Validate(t *testing.T) {
	assert.NoError(t, StatThreshold(StatLessonsCompleted, 1).Validate())
	assert.Error(t, StatThreshold("bogus", 1).Validate())
	assert.Error(t, StatThreshold(StatLessonsCompleted, 0).Validate())
	assert.Error(t, LevelReached(0).Validate())
	assert.Error(t, BadgeCount(-1).Validate())
	assert.Error(t, Requirement{Kind: "mystery"}.Validate())
}
