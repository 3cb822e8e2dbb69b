package progression

import (
	"fmt"
	"time"
)

// BadgeAwarder выдаёт тиры бейджей по каталогу. Выдача идемпотентна:
// каждая пара (бейдж, тир) вставляется не более одного раза, повторная
// проверка - no-op, а не ошибка.
type BadgeAwarder struct {
	catalog *Catalog
	ledger  *Ledger
}

// NewBadgeAwarder создаёт наградителя.
func NewBadgeAwarder(catalog *Catalog, ledger *Ledger) *BadgeAwarder {
	return &BadgeAwarder{catalog: catalog, ledger: ledger}
}

// AwardQualified пересматривает все бейджи каталога против текущих
// счётчиков и выдаёт каждый заслуженный, но ещё не выданный тир.
// Если счётчик перепрыгнул сразу несколько порогов, выдаются все
// промежуточные тиры за один вызов. Возвращает новые выдачи.
func (a *BadgeAwarder) AwardQualified(p *UserProgression) ([]AwardedBadge, error) {
	var awarded []AwardedBadge

	for _, def := range a.catalog.Badges {
		got, err := a.awardBadge(p, def)
		if err != nil {
			return awarded, err
		}
		awarded = append(awarded, got...)
	}
	return awarded, nil
}

// awardBadge выдаёт все заслуженные тиры одного бейджа.
func (a *BadgeAwarder) awardBadge(p *UserProgression, def BadgeDefinition) ([]AwardedBadge, error) {
	value := p.Stat(def.Stat)

	var awarded []AwardedBadge
	for _, tr := range def.Tiers {
		if value < tr.Threshold {
			// Тиры упорядочены по возрастанию порогов.
			break
		}
		if p.HasBadge(def.ID, tr.Tier) {
			continue
		}

		badge := AwardedBadge{
			BadgeID:     def.ID,
			Tier:        tr.Tier,
			AwardedAt:   time.Now().UTC(),
			PointReward: tr.PointReward,
		}
		if !p.grantBadge(badge) {
			continue
		}

		if tr.PointReward > 0 {
			reason := fmt.Sprintf("badge:%s:%s", def.ID, tr.Tier)
			if _, err := a.ledger.Award(p, tr.PointReward, reason); err != nil {
				return awarded, fmt.Errorf("badge %s %s reward: %w", def.ID, tr.Tier, err)
			}
		}
		awarded = append(awarded, badge)
	}
	return awarded, nil
}

// AwardMilestoneBonus начисляет бонус за веху серии. Защита от повторного
// начисления - та же идемпотентность пары (бейдж, тир): бонус выдаётся
// только если тир STREAK_KEEPER для этой вехи был выдан в этом вызове.
func (a *BadgeAwarder) AwardMilestoneBonus(p *UserProgression, milestone int, newlyAwarded []AwardedBadge) (PointEntry, bool, error) {
	if milestone == 0 {
		return PointEntry{}, false, nil
	}

	earned := false
	for _, b := range newlyAwarded {
		if b.BadgeID != BadgeStreakKeeper {
			continue
		}
		def, err := a.catalog.Badge(BadgeStreakKeeper)
		if err != nil {
			return PointEntry{}, false, err
		}
		for _, tr := range def.Tiers {
			if tr.Tier == b.Tier && tr.Threshold == milestone {
				earned = true
			}
		}
	}
	if !earned {
		return PointEntry{}, false, nil
	}

	reason := fmt.Sprintf("streak_milestone:%d", milestone)
	entry, err := a.ledger.Award(p, MilestoneBonus(milestone), reason)
	if err != nil {
		return PointEntry{}, false, err
	}
	return entry, true, nil
}
