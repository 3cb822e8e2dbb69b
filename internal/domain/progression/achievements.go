package progression

import (
	"fmt"
	"time"
)

// AchievementEvaluator разблокирует одноразовые достижения каталога.
// В отличие от тиров бейджей достижение выдаётся ровно один раз за
// всю жизнь пользователя; повторное выполнение условий - no-op.
type AchievementEvaluator struct {
	catalog *Catalog
	ledger  *Ledger
}

// NewAchievementEvaluator создаёт оценщика достижений.
func NewAchievementEvaluator(catalog *Catalog, ledger *Ledger) *AchievementEvaluator {
	return &AchievementEvaluator{catalog: catalog, ledger: ledger}
}

// UnlockQualified проверяет все достижения каталога и разблокирует
// каждое, чьи условия выполнены и которое ещё не разблокировано.
// Возвращает новые разблокировки.
func (e *AchievementEvaluator) UnlockQualified(p *UserProgression) ([]UnlockedAchievement, error) {
	var unlocked []UnlockedAchievement

	for _, def := range e.catalog.Achievements {
		if p.HasAchievement(def.ID) {
			continue
		}
		if !def.SatisfiedBy(p) {
			continue
		}

		a := UnlockedAchievement{
			AchievementID: def.ID,
			UnlockedAt:    time.Now().UTC(),
			PointReward:   def.PointReward,
		}
		if !p.unlockAchievement(a) {
			continue
		}

		if def.PointReward > 0 {
			reason := fmt.Sprintf("achievement:%s", def.ID)
			if _, err := e.ledger.Award(p, def.PointReward, reason); err != nil {
				return unlocked, fmt.Errorf("achievement %s reward: %w", def.ID, err)
			}
		}
		unlocked = append(unlocked, a)
	}
	return unlocked, nil
}
