package eventhandler

import (
	"context"
	"log/slog"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// Переходы уровня — главный "праздничный" момент прогрессии. Обработчик
// анонсирует их в канал для интерфейсов коллабораторов (виджеты,
// дашборды) и пишет структурированный лог.
// ═══════════════════════════════════════════════════════════════════════════

// Announcer публикует сообщения во внешние каналы (обычно Redis pub/sub).
type Announcer interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// OnLevelUpHandler анонсирует переходы уровня.
type OnLevelUpHandler struct {
	announcer Announcer
	channel   string
	logger    *slog.Logger
}

// NewOnLevelUpHandler создаёт обработчик анонса переходов уровня.
// announcer может быть nil - тогда остаётся только логирование.
func NewOnLevelUpHandler(announcer Announcer, channel string, logger *slog.Logger) *OnLevelUpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "pubsub:level_up"
	}

	return &OnLevelUpHandler{
		announcer: announcer,
		channel:   channel,
		logger:    logger.With("handler", "on_level_up"),
	}
}

// Handle реализует shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	if event.EventType() != shared.EventLevelUp {
		return nil
	}

	payload := event.Payload()
	h.logger.Info("level up",
		"user_id", event.AggregateID(),
		"old_level", payload["old_level"],
		"new_level", payload["new_level"],
	)

	if h.announcer == nil {
		return nil
	}

	if err := h.announcer.Publish(context.Background(), h.channel, payload); err != nil {
		h.logger.Warn("level up announce failed", "error", err)
		return err
	}

	return nil
}
