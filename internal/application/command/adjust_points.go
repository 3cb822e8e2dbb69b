package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADJUST POINTS COMMAND
// Administrative correction of a user's points. The only code path that can
// decrease a total; always leaves an audit trail in the point history.
// ══════════════════════════════════════════════════════════════════════════════

// AdjustPointsCommand contains the data of an administrative correction.
type AdjustPointsCommand struct {
	// UserID is the internal ID of the user.
	UserID string

	// Delta is the signed point change.
	Delta int

	// Reason documents why the correction was made.
	Reason string

	// AdjustedBy identifies the administrator.
	AdjustedBy string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AdjustPointsCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("adjust_points: user_id is required: %w", shared.ErrValidation)
	}
	if c.Delta == 0 {
		return fmt.Errorf("adjust_points: delta must be non-zero: %w", shared.ErrValidation)
	}
	if c.Reason == "" {
		return fmt.Errorf("adjust_points: reason is required: %w", shared.ErrValidation)
	}
	return nil
}

// AdjustPointsResult contains the result of a correction.
type AdjustPointsResult struct {
	// UserID is the internal ID of the user.
	UserID string

	// Delta is the applied change.
	Delta int

	// TotalPoints is the running total after the correction.
	TotalPoints int

	// Level after the correction. Upward corrections can promote;
	// downward corrections never demote.
	Level int

	// LeveledUp indicates the correction promoted the user.
	LeveledUp bool

	// AdjustedAt is when the correction was applied.
	AdjustedAt time.Time
}

// AdjustPointsHandler handles the AdjustPointsCommand.
type AdjustPointsHandler struct {
	repo        progression.Repository
	leaderboard progression.LeaderboardStore
	ledger      *progression.Ledger
	levels      *progression.LevelCalculator
	publisher   shared.EventPublisher
	maxAttempts int
}

// NewAdjustPointsHandler creates a new AdjustPointsHandler.
func NewAdjustPointsHandler(
	repo progression.Repository,
	leaderboard progression.LeaderboardStore,
	catalog *progression.Catalog,
	publisher shared.EventPublisher,
) *AdjustPointsHandler {
	return &AdjustPointsHandler{
		repo:        repo,
		leaderboard: leaderboard,
		ledger:      progression.NewLedger(),
		levels:      progression.NewLevelCalculator(catalog),
		publisher:   publisher,
		maxAttempts: 3,
	}
}

// Handle executes the adjust points command.
func (h *AdjustPointsHandler) Handle(ctx context.Context, cmd AdjustPointsCommand) (*AdjustPointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("adjust_points: validation failed: %w", err)
	}

	userID := shared.UserID(cmd.UserID)
	reason := cmd.Reason
	if cmd.AdjustedBy != "" {
		reason = fmt.Sprintf("%s (by %s)", cmd.Reason, cmd.AdjustedBy)
	}

	result := &AdjustPointsResult{
		UserID: cmd.UserID,
		Delta:  cmd.Delta,
	}

	updated, err := retry.DoWithData(ctx, func(ctx context.Context) (*progression.UserProgression, error) {
		p, err := h.repo.Update(ctx, userID, func(p *progression.UserProgression) error {
			entry, err := h.ledger.Correct(p, progression.Points(cmd.Delta), reason)
			if err != nil {
				return err
			}
			result.AdjustedAt = entry.Timestamp

			_, _, leveledUp := h.levels.CheckLevelUp(p)
			result.LeveledUp = leveledUp
			return nil
		})
		if errors.Is(err, shared.ErrOptimisticLock) {
			return nil, retry.Retryable(err)
		}
		return p, err
	}, retry.WithMaxAttempts(h.maxAttempts), retry.WithInitialDelay(10*time.Millisecond))
	if err != nil {
		return nil, err
	}

	result.TotalPoints = updated.TotalPoints.Int()
	result.Level = updated.CurrentLevel.Int()

	if h.leaderboard != nil {
		score := progression.ScoreOf(updated)
		_ = h.leaderboard.UpdateScore(ctx, updated.OrgID, updated.UserID, score)
		_ = h.leaderboard.UpdateScore(ctx, shared.GlobalOrg, updated.UserID, score)
	}

	if h.publisher != nil {
		event := shared.NewPointsCorrectedEvent(cmd.UserID, cmd.Delta, result.TotalPoints, reason)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(event)
	}

	return result, nil
}
