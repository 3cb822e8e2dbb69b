package progression

import (
	"fmt"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// StreakTracker ведёт серию дней активности. Границы дня - календарные
// сутки UTC: активность в 23:59 и в 00:01 следующего дня - разные дни.
type StreakTracker struct {
	milestones []int
}

// NewStreakTracker создаёт трекер с вехами серий из каталога.
func NewStreakTracker(catalog *Catalog) *StreakTracker {
	return &StreakTracker{milestones: catalog.StreakMilestones}
}

// StreakResult - результат учёта активности.
type StreakResult struct {
	// Streak - серия после учёта.
	Streak int

	// Extended - серия продлилась (первый учтённый день тоже Extended).
	Extended bool

	// Broken - серия была прервана и начата заново.
	Broken bool

	// DaysMissed - пропущено дней при разрыве.
	DaysMissed int

	// PreviousStreak - длина серии до разрыва (0, если разрыва не было).
	PreviousStreak int

	// MilestoneReached - достигнутая веха (0, если вехи нет).
	MilestoneReached int
}

// Touch учитывает streak-активность с меткой времени at.
//
// Переходы:
//   - первый учтённый день: серия = 1;
//   - тот же день: без изменений (идемпотентно);
//   - следующий день: серия +1;
//   - разрыв (2+ дня): серия = 1;
//   - активность раньше последней учтённой даты: ошибка, состояние
//     не меняется.
func (t *StreakTracker) Touch(p *UserProgression, at time.Time) (StreakResult, error) {
	day := shared.DayOf(at)

	if p.LastActiveDate.IsZero() {
		p.setStreak(1, day)
		return StreakResult{
			Streak:           1,
			Extended:         true,
			MilestoneReached: t.milestoneFor(1),
		}, nil
	}

	gap := p.LastActiveDate.DaysUntil(day)

	switch {
	case gap < 0:
		return StreakResult{}, fmt.Errorf("%w: last active %s, got %s",
			ErrClockSkew, p.LastActiveDate, day)

	case gap == 0:
		// Повторная активность в тот же день.
		return StreakResult{Streak: p.Streak}, nil

	case gap == 1:
		streak := p.Streak + 1
		p.setStreak(streak, day)
		return StreakResult{
			Streak:           streak,
			Extended:         true,
			MilestoneReached: t.milestoneFor(streak),
		}, nil

	default:
		prev := p.Streak
		p.setStreak(1, day)
		return StreakResult{
			Streak:           1,
			Extended:         true,
			Broken:           true,
			DaysMissed:       gap - 1,
			PreviousStreak:   prev,
			MilestoneReached: t.milestoneFor(1),
		}, nil
	}
}

// milestoneFor возвращает веху, совпадающую с длиной серии, или 0.
func (t *StreakTracker) milestoneFor(streak int) int {
	for _, m := range t.milestones {
		if m == streak {
			return m
		}
	}
	return 0
}

// MilestoneBonus возвращает бонусные очки за веху серии (дни × 10).
func MilestoneBonus(milestone int) Points {
	return Points(milestone * 10)
}
