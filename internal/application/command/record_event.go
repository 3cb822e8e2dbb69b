// Package command contains write operations (CQRS - Commands).
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
// RECORD EVENT COMMAND
// The single entry point for platform activity: awards points, advances the
// streak, re-evaluates badges and achievements, and refreshes the leaderboard.
// One event in, one consistent progression state out.
// ══════════════════════════════════════════════════════════════════════════════

// RecordEventCommand contains the data of one platform activity event.
type RecordEventCommand struct {
	// UserID is the internal ID of the user.
	UserID string

	// Type is the platform event type (lesson_completed, quiz_scored, ...).
	Type string

	// QuizScore is the score in percent (for quiz_scored).
	QuizScore int

	// IsPerfect marks a flawless quiz (for quiz_scored).
	IsPerfect bool

	// Minutes is the logged time in minutes (for time_logged).
	Minutes int

	// Timestamp is when the activity occurred (defaults to now if zero).
	Timestamp time.Time

	// EventID is the caller-supplied delivery key. A repeated delivery of
	// the same key is acknowledged without being applied again. Optional;
	// an empty key disables the replay guard for this event.
	EventID string

	// CorrelationID for tracing.
	CorrelationID string
}

// eventKey returns the replay-guard key of the command.
func (c RecordEventCommand) eventKey() string {
	if c.EventID != "" {
		return c.EventID
	}
	return c.CorrelationID
}

// Validate validates the command.
func (c RecordEventCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("record_event: user_id is required: %w", shared.ErrValidation)
	}
	if c.Type == "" {
		return fmt.Errorf("record_event: type is required: %w", shared.ErrValidation)
	}
	if c.Type == string(progression.EventQuizScored) && (c.QuizScore < 0 || c.QuizScore > 100) {
		return fmt.Errorf("record_event: quiz score out of range: %d: %w", c.QuizScore, shared.ErrValidation)
	}
	if c.Type == string(progression.EventTimeLogged) && c.Minutes <= 0 {
		return fmt.Errorf("record_event: minutes must be positive: %d: %w", c.Minutes, shared.ErrValidation)
	}
	return nil
}

// RecordEventResult contains everything that changed in one event.
type RecordEventResult struct {
	// UserID is the internal ID of the user.
	UserID string

	// PointsAwarded is the total points granted by this event,
	// including badge, achievement and milestone rewards.
	PointsAwarded int

	// TotalPoints is the running total after the event.
	TotalPoints int

	// Level is the level after the event.
	Level int

	// LeveledUp indicates the level increased.
	LeveledUp bool

	// PreviousLevel is the level before the event.
	PreviousLevel int

	// Streak is the streak after the event.
	Streak int

	// StreakExtended indicates the streak grew (or started).
	StreakExtended bool

	// StreakBroken indicates a gap reset the streak.
	StreakBroken bool

	// BadgesAwarded lists newly granted (badge, tier) pairs.
	BadgesAwarded []progression.AwardedBadge

	// AchievementsUnlocked lists newly unlocked achievements.
	AchievementsUnlocked []progression.UnlockedAchievement

	// Replayed marks a duplicate delivery: the event was already applied
	// and this call changed nothing.
	Replayed bool

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the event was processed.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordEventHandler handles the RecordEventCommand.
type RecordEventHandler struct {
	repo        progression.Repository
	leaderboard progression.LeaderboardStore
	catalog     *progression.Catalog
	ledger      *progression.Ledger
	levels      *progression.LevelCalculator
	streaks     *progression.StreakTracker
	badges      *progression.BadgeAwarder
	achievs     *progression.AchievementEvaluator
	publisher   shared.EventPublisher

	// maxAttempts bounds retries on optimistic lock conflicts.
	maxAttempts int
}

// NewRecordEventHandler creates a new RecordEventHandler.
func NewRecordEventHandler(
	repo progression.Repository,
	leaderboard progression.LeaderboardStore,
	catalog *progression.Catalog,
	publisher shared.EventPublisher,
) *RecordEventHandler {
	ledger := progression.NewLedger()
	return &RecordEventHandler{
		repo:        repo,
		leaderboard: leaderboard,
		catalog:     catalog,
		ledger:      ledger,
		levels:      progression.NewLevelCalculator(catalog),
		streaks:     progression.NewStreakTracker(catalog),
		badges:      progression.NewBadgeAwarder(catalog, ledger),
		achievs:     progression.NewAchievementEvaluator(catalog, ledger),
		publisher:   publisher,
		maxAttempts: 3,
	}
}

// Handle executes the record event command. The whole mutation runs inside
// one repository transaction; on an optimistic lock conflict the transaction
// is retried on fresh state, so concurrent events never lose updates.
func (h *RecordEventHandler) Handle(ctx context.Context, cmd RecordEventCommand) (*RecordEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_event: validation failed: %w", err)
	}

	def, err := h.catalog.Event(progression.DomainEventType(cmd.Type))
	if err != nil {
		return nil, fmt.Errorf("record_event: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	userID := shared.UserID(cmd.UserID)

	result, err := retry.DoWithData(ctx, func(ctx context.Context) (*RecordEventResult, error) {
		res, err := h.apply(ctx, userID, cmd, def, timestamp)
		if errors.Is(err, shared.ErrOptimisticLock) {
			return nil, retry.Retryable(err)
		}
		return res, err
	}, retry.WithMaxAttempts(h.maxAttempts), retry.WithInitialDelay(10*time.Millisecond))
	if err != nil {
		return nil, err
	}

	h.publish(result.Events)

	return result, nil
}

// apply runs one transactional attempt of the event pipeline.
func (h *RecordEventHandler) apply(
	ctx context.Context,
	userID shared.UserID,
	cmd RecordEventCommand,
	def progression.EventDefinition,
	timestamp time.Time,
) (*RecordEventResult, error) {
	result := &RecordEventResult{
		UserID:     cmd.UserID,
		RecordedAt: timestamp,
	}
	eventKey := cmd.eventKey()

	updated, err := h.repo.Update(ctx, userID, func(p *progression.UserProgression) error {
		// Replay guard: a redelivery of an already-processed event key
		// acknowledges with the current state and changes nothing.
		if p.HasProcessedEvent(eventKey) {
			result.Replayed = true
			result.TotalPoints = p.TotalPoints.Int()
			result.Level = p.CurrentLevel.Int()
			result.PreviousLevel = p.CurrentLevel.Int()
			result.Streak = p.Streak
			return nil
		}

		pointsBefore := p.TotalPoints

		// 1. Base points for the event itself.
		if def.BasePoints > 0 {
			entry, err := h.ledger.Award(p, def.BasePoints, string(def.Type))
			if err != nil {
				return err
			}
			result.Events = append(result.Events, shared.NewPointsAwardedEvent(
				cmd.UserID, entry.Amount.Int(), p.TotalPoints.Int(), entry.Reason,
			))
		}

		// 2. Stat counters.
		if def.Stat != "" {
			delta := 1
			if def.Type == progression.EventTimeLogged {
				delta = cmd.Minutes
			}
			if err := p.IncrementStat(def.Stat, delta); err != nil {
				return err
			}
		}
		if def.Type == progression.EventQuizScored && cmd.IsPerfect {
			if err := p.IncrementStat(progression.StatPerfectQuizzes, 1); err != nil {
				return err
			}
		}

		// 3. Streak.
		if def.StreakRelevant {
			streakRes, err := h.streaks.Touch(p, timestamp)
			if err != nil {
				return err
			}
			result.Streak = streakRes.Streak
			result.StreakExtended = streakRes.Extended
			result.StreakBroken = streakRes.Broken

			if streakRes.Broken {
				result.Events = append(result.Events, shared.NewStreakBrokenEvent(
					cmd.UserID, streakRes.PreviousStreak, streakRes.DaysMissed,
				))
			}
			if streakRes.Extended {
				result.Events = append(result.Events, shared.NewStreakUpdatedEvent(
					cmd.UserID, streakRes.Streak,
				))
			}

			// Milestone bonus rides on the badge idempotency guard below.
			if streakRes.MilestoneReached > 0 {
				awarded, err := h.badges.AwardQualified(p)
				if err != nil {
					return err
				}
				result.BadgesAwarded = append(result.BadgesAwarded, awarded...)
				if _, _, err := h.badges.AwardMilestoneBonus(p, streakRes.MilestoneReached, awarded); err != nil {
					return err
				}
			}
		} else {
			result.Streak = p.Streak
		}

		// 4. Level, badges and achievements settle together: a reward can
		// push points over a level threshold, and the new level can gate
		// an achievement. Loop until nothing changes.
		startLevel := p.CurrentLevel
		for {
			_, _, leveledUp := h.levels.CheckLevelUp(p)
			awarded, err := h.badges.AwardQualified(p)
			if err != nil {
				return err
			}
			unlocked, err := h.achievs.UnlockQualified(p)
			if err != nil {
				return err
			}
			result.BadgesAwarded = append(result.BadgesAwarded, awarded...)
			result.AchievementsUnlocked = append(result.AchievementsUnlocked, unlocked...)
			if !leveledUp && len(awarded) == 0 && len(unlocked) == 0 {
				break
			}
		}
		result.PreviousLevel = startLevel.Int()
		result.Level = p.CurrentLevel.Int()
		result.LeveledUp = p.CurrentLevel > startLevel
		if result.LeveledUp {
			result.Events = append(result.Events, shared.NewLevelUpEvent(
				cmd.UserID, startLevel.Int(), p.CurrentLevel.Int(), p.TotalPoints.Int(),
			))
		}

		result.PointsAwarded = (p.TotalPoints - pointsBefore).Int()
		result.TotalPoints = p.TotalPoints.Int()
		p.MarkEventProcessed(eventKey, timestamp)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		return result, nil
	}

	for _, b := range result.BadgesAwarded {
		result.Events = append(result.Events, shared.NewBadgeAwardedEvent(
			cmd.UserID, b.BadgeID.String(), b.Tier.String(), b.PointReward.Int(),
		))
	}
	for _, a := range result.AchievementsUnlocked {
		result.Events = append(result.Events, shared.NewAchievementUnlockedEvent(
			cmd.UserID, a.AchievementID.String(), a.PointReward.Int(),
		))
	}

	h.refreshLeaderboard(ctx, updated)

	return result, nil
}

// refreshLeaderboard pushes the new score to the ranking store.
// Leaderboard staleness is acceptable; failures never fail the command.
func (h *RecordEventHandler) refreshLeaderboard(ctx context.Context, p *progression.UserProgression) {
	if h.leaderboard == nil {
		return
	}
	score := progression.ScoreOf(p)
	_ = h.leaderboard.UpdateScore(ctx, p.OrgID, p.UserID, score)
	_ = h.leaderboard.UpdateScore(ctx, shared.GlobalOrg, p.UserID, score)
}

// publish sends domain events; delivery is best effort.
func (h *RecordEventHandler) publish(events []shared.Event) {
	if h.publisher == nil {
		return
	}
	for _, e := range events {
		_ = h.publisher.Publish(e)
	}
}
