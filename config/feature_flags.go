package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports percentage rollout, per-user overrides and org targeting, so
// progression mechanics can be introduced to one school before all of them.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Org targeting. Empty means all orgs.
	TargetOrgs []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string // internal user ID
	OrgID   string // organization scope
	IsAdmin bool   // is admin caller
}

// Predefined feature flag names.
const (
	// === Leaderboard Features ===
	FeatureLeaderboardCache   = "leaderboard.cache"    // Redis-backed rankings
	FeatureLeaderboardAround  = "leaderboard.around"   // "around me" slice
	FeatureLeaderboardStreak  = "leaderboard.streak"   // streak ranking key
	FeatureLeaderboardRebuild = "leaderboard.rebuild"  // scheduled reconciliation
	FeaturePubSubFanout       = "events.pubsub_fanout" // cross-instance event fan-out

	// === Progression Features ===
	FeatureProgressionStreaks      = "progression.streaks"      // daily streaks
	FeatureProgressionBadges       = "progression.badges"       // tiered badges
	FeatureProgressionAchievements = "progression.achievements" // one-shot achievements
	FeatureProgressionMilestones   = "progression.milestones"   // streak milestone bonuses

	// === Administration ===
	FeatureAdminCorrections = "admin.corrections" // manual point adjustments
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Leaderboard features - enabled by default
	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:           FeatureLeaderboardCache,
		Description:    "Serve rankings from Redis sorted sets",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardAround] = &Feature{
		Name:           FeatureLeaderboardAround,
		Description:    "Around-me leaderboard slice",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardStreak] = &Feature{
		Name:           FeatureLeaderboardStreak,
		Description:    "Rank by current streak",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardRebuild] = &Feature{
		Name:           FeatureLeaderboardRebuild,
		Description:    "Scheduled leaderboard reconciliation",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeaturePubSubFanout] = &Feature{
		Name:           FeaturePubSubFanout,
		Description:    "Fan events out to other instances over Redis pub/sub",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Progression mechanics
	ff.features[FeatureProgressionStreaks] = &Feature{
		Name:           FeatureProgressionStreaks,
		Description:    "Track daily streaks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionBadges] = &Feature{
		Name:           FeatureProgressionBadges,
		Description:    "Award tiered badges",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionAchievements] = &Feature{
		Name:           FeatureProgressionAchievements,
		Description:    "Unlock one-shot achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionMilestones] = &Feature{
		Name:           FeatureProgressionMilestones,
		Description:    "Bonus points on streak milestones",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Admin corrections - opt-in per deployment
	ff.features[FeatureAdminCorrections] = &Feature{
		Name:           FeatureAdminCorrections,
		Description:    "Manual point adjustments",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_LEADERBOARD_CACHE=true
// Example: FEATURE_PROGRESSION_MILESTONES=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "leaderboard.cache" -> "FEATURE_LEADERBOARD_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin callers get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check org targeting
	if len(feature.TargetOrgs) > 0 && ctx != nil && ctx.OrgID != "" {
		orgMatch := false
		for _, o := range feature.TargetOrgs {
			if o == ctx.OrgID {
				orgMatch = true
				break
			}
		}
		if !orgMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return ff.isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(userID string, featureName string, percent int) bool {
	// Create a consistent hash for this user+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// LeaderboardCacheEnabled checks if Redis-backed rankings are on globally.
func (ff *FeatureFlags) LeaderboardCacheEnabled() bool {
	return ff.IsEnabled(FeatureLeaderboardCache, nil)
}

// SchedulerRebuildEnabled checks if the reconciliation job should run.
func (ff *FeatureFlags) SchedulerRebuildEnabled() bool {
	return ff.IsEnabled(FeatureLeaderboardRebuild, nil)
}

// AdminCorrectionsEnabled checks if manual adjustments are accepted.
func (ff *FeatureFlags) AdminCorrectionsEnabled() bool {
	return ff.IsEnabled(FeatureAdminCorrections, nil)
}

// PubSubFanoutEnabled checks if events are fanned out over Redis.
func (ff *FeatureFlags) PubSubFanoutEnabled() bool {
	return ff.IsEnabled(FeaturePubSubFanout, nil)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
