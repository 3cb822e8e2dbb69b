package query

import (
	"context"
	"fmt"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET POINT HISTORY QUERY
// Возвращает страницу append-only истории начислений, новые записи первыми.
// ══════════════════════════════════════════════════════════════════════════════

// GetPointHistoryQuery содержит параметры запроса истории.
type GetPointHistoryQuery struct {
	// UserID - внутренний ID пользователя.
	UserID string

	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int

	// Offset - смещение для пагинации.
	Offset int

	// OnlyCorrections - вернуть только административные коррекции.
	OnlyCorrections bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetPointHistoryQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required: %w", shared.ErrValidation)
	}
	if q.Limit < 0 || q.Offset < 0 {
		return fmt.Errorf("limit and offset cannot be negative: %w", shared.ErrValidation)
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	return nil
}

// PointEntryDTO - DTO одной записи истории.
type PointEntryDTO struct {
	// ID - идентификатор записи.
	ID string `json:"id"`

	// Amount - изменение очков.
	Amount int `json:"amount"`

	// Reason - причина начисления.
	Reason string `json:"reason"`

	// IsCorrection - административная коррекция.
	IsCorrection bool `json:"is_correction"`

	// Timestamp - время начисления.
	Timestamp time.Time `json:"timestamp"`
}

// GetPointHistoryResult содержит страницу истории.
type GetPointHistoryResult struct {
	// UserID - внутренний ID пользователя.
	UserID string `json:"user_id"`

	// Entries - записи истории, новые первыми.
	Entries []PointEntryDTO `json:"entries"`

	// TotalCount - общее количество записей в истории.
	TotalCount int `json:"total_count"`

	// HasMore - есть ли ещё записи после текущей страницы.
	HasMore bool `json:"has_more"`
}

// GetPointHistoryHandler обрабатывает запрос истории.
type GetPointHistoryHandler struct {
	repo   progression.Repository
	ledger *progression.Ledger
}

// NewGetPointHistoryHandler создаёт обработчик.
func NewGetPointHistoryHandler(repo progression.Repository) *GetPointHistoryHandler {
	return &GetPointHistoryHandler{
		repo:   repo,
		ledger: progression.NewLedger(),
	}
}

// Handle выполняет запрос.
func (h *GetPointHistoryHandler) Handle(ctx context.Context, q GetPointHistoryQuery) (*GetPointHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_point_history: %w", err)
	}

	p, err := h.repo.Get(ctx, shared.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_point_history: %w", err)
	}

	entries := h.ledger.History(p, q.Offset, q.Limit)

	result := &GetPointHistoryResult{
		UserID:     q.UserID,
		Entries:    make([]PointEntryDTO, 0, len(entries)),
		TotalCount: len(p.PointHistory),
		HasMore:    q.Offset+len(entries) < len(p.PointHistory),
	}
	for _, e := range entries {
		if q.OnlyCorrections && !e.IsCorrection() {
			continue
		}
		result.Entries = append(result.Entries, PointEntryDTO{
			ID:           e.ID,
			Amount:       e.Amount.Int(),
			Reason:       e.Reason,
			IsCorrection: e.IsCorrection(),
			Timestamp:    e.Timestamp,
		})
	}

	return result, nil
}
