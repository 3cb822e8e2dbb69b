// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESSION QUERY
// Возвращает полный снимок прогрессии пользователя: очки, уровень, серию,
// бейджи, достижения и позицию в рейтинге.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressionQuery содержит параметры запроса.
type GetProgressionQuery struct {
	// UserID - внутренний ID пользователя.
	UserID string

	// IncludeRank - включать позицию в рейтинге организации.
	IncludeRank bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetProgressionQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required: %w", shared.ErrValidation)
	}
	return nil
}

// BadgeDTO - DTO выданного бейджа.
type BadgeDTO struct {
	// BadgeID - идентификатор бейджа.
	BadgeID string `json:"badge_id"`

	// Tier - выданный тир.
	Tier string `json:"tier"`

	// AwardedAt - время выдачи.
	AwardedAt time.Time `json:"awarded_at"`

	// PointReward - начисленные очки.
	PointReward int `json:"point_reward"`
}

// AchievementDTO - DTO разблокированного достижения.
type AchievementDTO struct {
	// AchievementID - идентификатор достижения.
	AchievementID string `json:"achievement_id"`

	// UnlockedAt - время разблокировки.
	UnlockedAt time.Time `json:"unlocked_at"`

	// PointReward - начисленные очки.
	PointReward int `json:"point_reward"`
}

// GetProgressionResult содержит снимок прогрессии.
type GetProgressionResult struct {
	// UserID - внутренний ID пользователя.
	UserID string `json:"user_id"`

	// OrgID - организация пользователя.
	OrgID string `json:"org_id,omitempty"`

	// TotalPoints - накопленные очки.
	TotalPoints int `json:"total_points"`

	// Level - текущий уровень.
	Level int `json:"level"`

	// PointsToNextLevel - сколько очков до следующего уровня
	// (0 на последнем уровне).
	PointsToNextLevel int `json:"points_to_next_level"`

	// Streak - текущая серия дней.
	Streak int `json:"streak"`

	// LastActiveDate - дата последней streak-активности (UTC).
	LastActiveDate string `json:"last_active_date,omitempty"`

	// Stats - счётчики статистики.
	Stats map[string]int `json:"stats"`

	// Badges - выданные бейджи.
	Badges []BadgeDTO `json:"badges"`

	// Achievements - разблокированные достижения.
	Achievements []AchievementDTO `json:"achievements"`

	// Rank - позиция в рейтинге организации (0 = вне рейтинга).
	Rank int `json:"rank,omitempty"`

	// GeneratedAt - время генерации снимка.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetProgressionHandler обрабатывает запрос.
type GetProgressionHandler struct {
	repo        progression.Repository
	leaderboard progression.LeaderboardStore
	levels      *progression.LevelCalculator
}

// NewGetProgressionHandler создаёт обработчик.
func NewGetProgressionHandler(
	repo progression.Repository,
	leaderboard progression.LeaderboardStore,
	catalog *progression.Catalog,
) *GetProgressionHandler {
	return &GetProgressionHandler{
		repo:        repo,
		leaderboard: leaderboard,
		levels:      progression.NewLevelCalculator(catalog),
	}
}

// Handle выполняет запрос.
func (h *GetProgressionHandler) Handle(ctx context.Context, q GetProgressionQuery) (*GetProgressionResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_progression: %w", err)
	}

	p, err := h.repo.Get(ctx, shared.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_progression: %w", err)
	}

	result := &GetProgressionResult{
		UserID:      q.UserID,
		OrgID:       p.OrgID.String(),
		TotalPoints: p.TotalPoints.Int(),
		Level:       p.CurrentLevel.Int(),
		Streak:      p.Streak,
		Stats:       make(map[string]int, len(p.Stats)),
		GeneratedAt: time.Now().UTC(),
	}

	if missing, ok := h.levels.PointsToNext(p.TotalPoints); ok {
		result.PointsToNextLevel = missing.Int()
	}
	if !p.LastActiveDate.IsZero() {
		result.LastActiveDate = p.LastActiveDate.String()
	}

	for name, value := range p.Stats {
		result.Stats[string(name)] = value
	}

	for _, b := range p.BadgeList() {
		result.Badges = append(result.Badges, BadgeDTO{
			BadgeID:     b.BadgeID.String(),
			Tier:        b.Tier.String(),
			AwardedAt:   b.AwardedAt,
			PointReward: b.PointReward.Int(),
		})
	}
	for _, a := range p.AchievementList() {
		result.Achievements = append(result.Achievements, AchievementDTO{
			AchievementID: a.AchievementID.String(),
			UnlockedAt:    a.UnlockedAt,
			PointReward:   a.PointReward.Int(),
		})
	}

	if q.IncludeRank && h.leaderboard != nil {
		rank, err := h.leaderboard.RankOf(ctx, progression.RankByPoints, p.OrgID, p.UserID)
		if err == nil {
			result.Rank = int(rank)
		}
	}

	return result, nil
}
