package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureFlags_DefaultsEnabled(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.LeaderboardCacheEnabled())
	assert.True(t, ff.SchedulerRebuildEnabled())
	assert.True(t, ff.AdminCorrectionsEnabled())
	assert.True(t, ff.PubSubFanoutEnabled())
}

func TestFeatureFlags_DisableAndEnable(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.NoError(t, ff.DisableFeature(FeatureLeaderboardRebuild))
	assert.False(t, ff.SchedulerRebuildEnabled())

	assert.NoError(t, ff.EnableFeature(FeatureLeaderboardRebuild))
	assert.True(t, ff.SchedulerRebuildEnabled())
}

func TestFeatureFlags_UnknownFeature(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.Error(t, ff.EnableFeature("no.such.feature"))
	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestFeatureFlags_UserOverrideWinsOverRollout(t *testing.T) {
	ff := LoadFeatureFlags()
	userID := "aa111111-1111-4111-8111-111111111111"

	assert.NoError(t, ff.SetRolloutPercent(FeatureLeaderboardAround, 0))
	assert.False(t, ff.IsEnabled(FeatureLeaderboardAround, &FeatureContext{UserID: userID}))

	ff.SetUserOverride(userID, FeatureLeaderboardAround, true)
	assert.True(t, ff.IsEnabled(FeatureLeaderboardAround, &FeatureContext{UserID: userID}))

	ff.ClearUserOverrides(userID)
	assert.False(t, ff.IsEnabled(FeatureLeaderboardAround, &FeatureContext{UserID: userID}))
}

func TestFeatureFlags_AdminBypassesRollout(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.NoError(t, ff.SetRolloutPercent(FeatureAdminCorrections, 0))
	assert.True(t, ff.IsEnabled(FeatureAdminCorrections, &FeatureContext{IsAdmin: true}))
}

func TestFeatureFlags_RolloutPercentValidation(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.Error(t, ff.SetRolloutPercent(FeatureLeaderboardCache, -1))
	assert.Error(t, ff.SetRolloutPercent(FeatureLeaderboardCache, 101))
	assert.NoError(t, ff.SetRolloutPercent(FeatureLeaderboardCache, 50))
}
