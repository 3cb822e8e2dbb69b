// Package jobs contains implementations of scheduled jobs for the Reef
// Progression Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob reconciles the Redis rankings with the progression
// store. Score updates during RecordEvent are best-effort, so a Redis outage
// leaves the sorted sets stale; this job walks every progression record and
// rewrites the org and global scopes from scratch.
type RebuildLeaderboardJob struct {
	repo        progression.Repository
	leaderboard progression.LeaderboardStore
	publisher   shared.EventPublisher
	logger      *slog.Logger
	config      RebuildLeaderboardConfig

	lastStats atomic.Value // *RebuildStats
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// BatchSize is how many progression records to load per page.
	BatchSize int

	// Timeout is the maximum duration for the rebuild operation.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		BatchSize: 500,
		Timeout:   5 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	TotalUsers   int
	ScopesBuilt  int
	Errors       []error
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
// publisher may be nil.
func NewRebuildLeaderboardJob(
	repo progression.Repository,
	leaderboard progression.LeaderboardStore,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	return &RebuildLeaderboardJob{
		repo:        repo,
		leaderboard: leaderboard,
		publisher:   publisher,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds Redis leaderboard rankings from the progression store"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	stats := &RebuildStats{StartedAt: time.Now()}

	byOrg, total, err := j.collectEntries(ctx)
	if err != nil {
		return fmt.Errorf("rebuild_leaderboard: collect: %w", err)
	}
	stats.TotalUsers = total

	// The global scope ranks everyone.
	global := make([]progression.LeaderboardEntry, 0, total)
	for _, entries := range byOrg {
		global = append(global, entries...)
	}
	byOrg[shared.GlobalOrg] = global

	for orgID, entries := range byOrg {
		if err := j.leaderboard.Rebuild(ctx, orgID, entries); err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("scope %q: %w", orgID.String(), err))
			j.logger.Error("scope rebuild failed",
				"org", orgID.String(),
				"error", err,
			)
			continue
		}
		stats.ScopesBuilt++

		if j.publisher != nil {
			event := shared.NewLeaderboardRebuiltEvent(orgID.String(), len(entries))
			if err := j.publisher.Publish(event); err != nil {
				j.logger.Warn("publish rebuilt event failed", "error", err)
			}
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard rebuild finished",
		"users", stats.TotalUsers,
		"scopes", stats.ScopesBuilt,
		"duration", stats.Duration.String(),
		"errors", len(stats.Errors),
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("rebuild_leaderboard: %d scope(s) failed", len(stats.Errors))
	}
	return nil
}

// LastStats returns statistics from the most recent run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	stats, _ := j.lastStats.Load().(*RebuildStats)
	return stats
}

// collectEntries pages through the store and groups ranking entries by org.
func (j *RebuildLeaderboardJob) collectEntries(ctx context.Context) (map[shared.OrgID][]progression.LeaderboardEntry, int, error) {
	byOrg := make(map[shared.OrgID][]progression.LeaderboardEntry)
	total := 0

	opts := progression.DefaultListOptions().WithLimit(j.config.BatchSize)
	for {
		page, err := j.repo.List(ctx, opts)
		if err != nil {
			return nil, 0, err
		}
		if len(page) == 0 {
			break
		}

		for _, p := range page {
			byOrg[p.OrgID] = append(byOrg[p.OrgID], progression.LeaderboardEntry{
				UserID: p.UserID,
				Score:  progression.ScoreOf(p),
			})
			total++
		}

		if len(page) < j.config.BatchSize {
			break
		}
		opts = opts.WithOffset(opts.Offset + j.config.BatchSize)
	}

	return byOrg, total, nil
}
