// Package eventhandler содержит обработчики доменных событий.
// Обработчики — "реактивная" часть системы: они реагируют на изменения
// прогрессии и запускают побочные эффекты (инвалидация кеша,
// анонсы для интерфейсов коллабораторов).
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESSION CHANGED HANDLER
// Любая мутация прогрессии делает кешированный снимок пользователя
// устаревшим. Обработчик сбрасывает кеш по aggregate ID события.
// ═══════════════════════════════════════════════════════════════════════════

// ProgressionChangedEvents перечисляет типы событий, после которых
// кешированный снимок прогрессии устаревает.
var ProgressionChangedEvents = []shared.EventType{
	shared.EventPointsAwarded,
	shared.EventPointsCorrected,
	shared.EventLevelUp,
	shared.EventStreakUpdated,
	shared.EventStreakBroken,
	shared.EventBadgeAwarded,
	shared.EventAchievementUnlocked,
}

// OnProgressionChangedHandler инвалидирует кеш прогрессии пользователя.
type OnProgressionChangedHandler struct {
	cache  progression.Cache
	logger *slog.Logger
}

// NewOnProgressionChangedHandler создаёт обработчик инвалидации кеша.
func NewOnProgressionChangedHandler(cache progression.Cache, logger *slog.Logger) *OnProgressionChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnProgressionChangedHandler{
		cache:  cache,
		logger: logger.With("handler", "on_progression_changed"),
	}
}

// Handle реализует shared.EventHandler.
func (h *OnProgressionChangedHandler) Handle(event shared.Event) error {
	userID := shared.UserID(event.AggregateID())
	if userID.IsEmpty() {
		return nil
	}

	if err := h.cache.Invalidate(context.Background(), userID); err != nil {
		h.logger.Warn("cache invalidation failed",
			"event_type", event.EventType(),
			"user_id", userID,
			"error", err,
		)
		return err
	}

	return nil
}
