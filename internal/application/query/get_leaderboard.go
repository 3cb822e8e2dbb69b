package query

import (
	"context"
	"fmt"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Получает топ-N пользователей рейтинга по выбранному ключу (очки, стрик
// или уровень). Поддерживает пагинацию, скоуп организации и срез
// "вокруг меня".
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Key - ключ ранжирования: points, streak или level
	// (пустая строка = points).
	Key string

	// OrgID - скоуп организации (пустая строка = глобальный рейтинг).
	OrgID string

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int

	// AroundUserID - если задан, вернуть срез вокруг пользователя
	// вместо топа.
	AroundUserID string

	// Radius - радиус среза "вокруг меня" (по умолчанию 3).
	Radius int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if _, err := progression.ParseRankingKey(q.Key); err != nil {
		return err
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %w", shared.ErrValidation)
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset cannot be negative: %w", shared.ErrValidation)
	}
	if q.Radius <= 0 {
		q.Radius = 3
	}
	return nil
}

// LeaderboardEntryDTO - DTO для записи лидерборда.
type LeaderboardEntryDTO struct {
	// Rank - позиция в рейтинге (начиная с 1).
	Rank int `json:"rank"`

	// UserID - внутренний ID пользователя.
	UserID string `json:"user_id"`

	// Points - очки.
	Points int `json:"points"`

	// Level - уровень.
	Level int `json:"level"`

	// Streak - текущий стрик в днях.
	Streak int `json:"streak"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Entries - записи лидерборда.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - общее количество участников рейтинга.
	TotalCount int `json:"total_count"`

	// Key - ключ ранжирования.
	Key string `json:"key"`

	// OrgID - скоуп, по которому построен рейтинг.
	OrgID string `json:"org_id,omitempty"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`

	// HasMore - есть ли ещё записи после текущей страницы.
	HasMore bool `json:"has_more"`
}

// GetLeaderboardHandler обрабатывает запрос лидерборда.
type GetLeaderboardHandler struct {
	leaderboard progression.LeaderboardStore
	fallback    progression.Repository
}

// NewGetLeaderboardHandler создаёт обработчик.
func NewGetLeaderboardHandler(leaderboard progression.LeaderboardStore) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{leaderboard: leaderboard}
}

// WithFallback включает fallback на репозиторий: если хранилище рейтинга
// недоступно, топ по очкам читается напрямую из него. Работает только для
// ключа points без среза "вокруг меня".
func (h *GetLeaderboardHandler) WithFallback(repo progression.Repository) *GetLeaderboardHandler {
	h.fallback = repo
	return h
}

// Handle выполняет запрос.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	orgID := shared.OrgID(q.OrgID)
	key, _ := progression.ParseRankingKey(q.Key)

	var (
		entries []progression.LeaderboardEntry
		err     error
	)
	if q.AroundUserID != "" {
		entries, err = h.leaderboard.Around(ctx, key, orgID, shared.UserID(q.AroundUserID), q.Radius)
	} else {
		entries, err = h.leaderboard.Top(ctx, key, orgID, q.Offset, q.Limit)
	}
	if err != nil {
		if h.fallback == nil || q.AroundUserID != "" || key != progression.RankByPoints || !shared.IsStoreUnavailable(err) {
			return nil, fmt.Errorf("get_leaderboard: %w", err)
		}
		return h.handleFromRepository(ctx, q, orgID, key)
	}

	total, err := h.leaderboard.Size(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	result := &GetLeaderboardResult{
		Entries:     make([]LeaderboardEntryDTO, 0, len(entries)),
		TotalCount:  total,
		Key:         key.String(),
		OrgID:       q.OrgID,
		GeneratedAt: time.Now().UTC(),
		HasMore:     q.AroundUserID == "" && q.Offset+len(entries) < total,
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:   int(e.Rank),
			UserID: string(e.UserID),
			Points: e.Score.Points.Int(),
			Level:  e.Score.Level.Int(),
			Streak: e.Score.Streak,
		})
	}

	return result, nil
}

// handleFromRepository читает топ по очкам напрямую из репозитория, когда
// хранилище рейтинга недоступно. Ранги присваиваются по позиции в выборке.
func (h *GetLeaderboardHandler) handleFromRepository(ctx context.Context, q GetLeaderboardQuery, orgID shared.OrgID, key progression.RankingKey) (*GetLeaderboardResult, error) {
	// +1 к лимиту, чтобы понять, есть ли следующая страница.
	top, err := h.fallback.TopByPoints(ctx, orgID, q.Offset+q.Limit+1)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: fallback: %w", err)
	}

	hasMore := len(top) > q.Offset+q.Limit
	if q.Offset < len(top) {
		top = top[q.Offset:]
	} else {
		top = nil
	}
	if len(top) > q.Limit {
		top = top[:q.Limit]
	}

	result := &GetLeaderboardResult{
		Entries:     make([]LeaderboardEntryDTO, 0, len(top)),
		TotalCount:  q.Offset + len(top),
		Key:         key.String(),
		OrgID:       q.OrgID,
		GeneratedAt: time.Now().UTC(),
		HasMore:     hasMore,
	}
	if hasMore {
		result.TotalCount++
	}
	for i, p := range top {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:   q.Offset + i + 1,
			UserID: string(p.UserID),
			Points: p.TotalPoints.Int(),
			Level:  p.CurrentLevel.Int(),
			Streak: p.Streak,
		})
	}

	return result, nil
}
