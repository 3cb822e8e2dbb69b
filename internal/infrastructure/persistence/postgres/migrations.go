// Embedded schema migrations for the progression store.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROGRESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user progression table
-- Version: 001

CREATE TABLE IF NOT EXISTS user_progressions (
    user_id UUID PRIMARY KEY,
    org_id VARCHAR(50) NOT NULL DEFAULT '',
    total_points INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
    current_level INTEGER NOT NULL DEFAULT 1 CHECK (current_level >= 1),
    streak INTEGER NOT NULL DEFAULT 0 CHECK (streak >= 0),
    last_active_date DATE,
    stats JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    version BIGINT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_progressions_org ON user_progressions(org_id);
CREATE INDEX IF NOT EXISTS idx_progressions_points ON user_progressions(total_points DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS user_progressions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE POINT HISTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create append-only point history
-- Version: 002

CREATE TABLE IF NOT EXISTS point_history (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES user_progressions(user_id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    reason TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_point_history_user
    ON point_history(user_id, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS point_history;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE BADGES & ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create badge and achievement grants
-- Version: 003
-- The primary keys are the idempotency guard: a (user, badge, tier) pair
-- and a (user, achievement) pair can each be inserted at most once.

CREATE TABLE IF NOT EXISTS user_badges (
    user_id UUID NOT NULL REFERENCES user_progressions(user_id) ON DELETE CASCADE,
    badge_id VARCHAR(50) NOT NULL,
    tier VARCHAR(20) NOT NULL,
    point_reward INTEGER NOT NULL DEFAULT 0,
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, badge_id, tier)
);

CREATE TABLE IF NOT EXISTS user_achievements (
    user_id UUID NOT NULL REFERENCES user_progressions(user_id) ON DELETE CASCADE,
    achievement_id VARCHAR(50) NOT NULL,
    point_reward INTEGER NOT NULL DEFAULT 0,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_user_badges_badge ON user_badges(badge_id, tier);
`

const migration003Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS user_badges;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: PROCESSED EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Track processed event keys per user
-- Version: 004
-- Keys of already-applied activity events; a redelivery with a known key
-- is acknowledged without being applied again.

ALTER TABLE user_progressions
    ADD COLUMN IF NOT EXISTS processed_events JSONB NOT NULL DEFAULT '{}'::jsonb;
`

const migration004Down = `
ALTER TABLE user_progressions DROP COLUMN IF EXISTS processed_events;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progressions",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_point_history",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_badges_achievements",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "add_processed_events",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}
