package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeAwarder_AwardsTierOnThreshold(t *testing.T) {
	catalog := DefaultCatalog()
	awarder := NewBadgeAwarder(catalog, NewLedger())
	p := newTestProgression(t)

	assert.NoError(t, p.IncrementStat(StatLessonsCompleted, 5))

	awarded, err := awarder.AwardQualified(p)

	assert.NoError(t, err)
	assert.Len(t, awarded, 1)
	assert.Equal(t, BadgeReefExplorer, awarded[0].BadgeID)
	assert.Equal(t, TierBronze, awarded[0].Tier)
	assert.True(t, p.HasBadge(BadgeReefExplorer, TierBronze))

	// Tier reward lands in the ledger with a badge-tagged reason.
	assert.Equal(t, Points(25), p.TotalPoints)
	assert.Equal(t, "badge:REEF_EXPLORER:bronze", p.PointHistory[0].Reason)
}

func TestBadgeAwarder_NeverAwardsTwice(t *testing.T) {
	catalog := DefaultCatalog()
	awarder := NewBadgeAwarder(catalog, NewLedger())
	p := newTestProgression(t)

	assert.NoError(t, p.IncrementStat(StatPerfectQuizzes, 3))

	first, err := awarder.AwardQualified(p)
	assert.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := awarder.AwardQualified(p)
	assert.NoError(t, err)
	assert.Empty(t, second)

	// Points from the tier reward must not double.
	assert.Equal(t, Points(30), p.TotalPoints)
	assert.Len(t, p.PointHistory, 1)
}

func TestBadgeAwarder_MultiTierJumpAwardsAll(t *testing.T) {
	catalog := DefaultCatalog()
	awarder := NewBadgeAwarder(catalog, NewLedger())
	p := newTestProgression(t)

	// A bulk import can push a counter over several thresholds at once.
	assert.NoError(t, p.IncrementStat(StatSpeciesIdentified, 45))

	awarded, err := awarder.AwardQualified(p)

	assert.NoError(t, err)
	assert.Len(t, awarded, 2)
	assert.True(t, p.HasBadge(BadgeSpeciesSpotter, TierBronze))
	assert.True(t, p.HasBadge(BadgeSpeciesSpotter, TierSilver))
	assert.False(t, p.HasBadge(BadgeSpeciesSpotter, TierGold))
	assert.Equal(t, Points(25+75), p.TotalPoints)
}

func TestBadgeAwarder_MilestoneBonusOnlyWhenTierNewlyAwarded(t *testing.T) {
	catalog := DefaultCatalog()
	ledger := NewLedger()
	awarder := NewBadgeAwarder(catalog, ledger)
	p := newTestProgression(t)

	assert.NoError(t, p.IncrementStat(StatStreakDays, 7))

	awarded, err := awarder.AwardQualified(p)
	assert.NoError(t, err)
	assert.Len(t, awarded, 1)

	entry, granted, err := awarder.AwardMilestoneBonus(p, 7, awarded)
	assert.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, Points(70), entry.Amount)
	assert.Equal(t, "streak_milestone:7", entry.Reason)

	// Replaying the same milestone awards no new tier, hence no bonus.
	again, err := awarder.AwardQualified(p)
	assert.NoError(t, err)
	assert.Empty(t, again)

	_, granted, err = awarder.AwardMilestoneBonus(p, 7, again)
	assert.NoError(t, err)
	assert.False(t, granted)
}

func TestBadgeAwarder_NoMilestoneNoBonus(t *testing.T) {
	awarder := NewBadgeAwarder(DefaultCatalog(), NewLedger())
	p := newTestProgression(t)

	_, granted, err := awarder.AwardMilestoneBonus(p, 0, nil)
	assert.NoError(t, err)
	assert.False(t, granted)
}
