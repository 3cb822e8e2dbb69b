package progression

import (
	"fmt"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUIREMENTS
// ══════════════════════════════════════════════════════════════════════════════

// RequirementKind различает виды требований каталога.
type RequirementKind string

const (
	// RequirementStat - счётчик статистики достиг порога.
	RequirementStat RequirementKind = "stat_threshold"
	// RequirementLevel - достигнут уровень.
	RequirementLevel RequirementKind = "level_reached"
	// RequirementBadgeCount - собрано бейджей (пар бейдж-тир).
	RequirementBadgeCount RequirementKind = "badge_count"
)

// Requirement - помеченное объединение условий разблокировки.
// Поля интерпретируются в зависимости от Kind.
type Requirement struct {
	// Kind - вид требования.
	Kind RequirementKind

	// Stat - имя счётчика (только для RequirementStat).
	Stat StatName

	// Threshold - порог счётчика или количества бейджей.
	Threshold int

	// Level - требуемый уровень (только для RequirementLevel).
	Level Level
}

// StatThreshold создаёт требование по счётчику статистики.
func StatThreshold(stat StatName, threshold int) Requirement {
	return Requirement{Kind: RequirementStat, Stat: stat, Threshold: threshold}
}

// LevelReached создаёт требование по достигнутому уровню.
func LevelReached(level Level) Requirement {
	return Requirement{Kind: RequirementLevel, Level: level}
}

// BadgeCount создаёт требование по числу собранных бейджей.
func BadgeCount(count int) Requirement {
	return Requirement{Kind: RequirementBadgeCount, Threshold: count}
}

// SatisfiedBy проверяет требование против текущего состояния прогрессии.
func (r Requirement) SatisfiedBy(p *UserProgression) bool {
	switch r.Kind {
	case RequirementStat:
		return p.Stat(r.Stat) >= r.Threshold
	case RequirementLevel:
		return p.CurrentLevel >= r.Level
	case RequirementBadgeCount:
		return len(p.Badges) >= r.Threshold
	default:
		return false
	}
}

// Validate проверяет внутреннюю согласованность требования.
func (r Requirement) Validate() error {
	switch r.Kind {
	case RequirementStat:
		if !r.Stat.IsValid() {
			return fmt.Errorf("catalog: %w: %q", ErrUnknownStat, r.Stat)
		}
		if r.Threshold <= 0 {
			return fmt.Errorf("catalog: %w: stat threshold %d", shared.ErrValueOutOfRange, r.Threshold)
		}
	case RequirementLevel:
		if !r.Level.IsValid() {
			return fmt.Errorf("catalog: %w: level %d", shared.ErrValueOutOfRange, r.Level)
		}
	case RequirementBadgeCount:
		if r.Threshold <= 0 {
			return fmt.Errorf("catalog: %w: badge count %d", shared.ErrValueOutOfRange, r.Threshold)
		}
	default:
		return fmt.Errorf("catalog: %w: requirement kind %q", shared.ErrInvalidInput, r.Kind)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE & ACHIEVEMENT DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// TierRequirement описывает один тир бейджа: порог и награда.
type TierRequirement struct {
	// Tier - тир.
	Tier Tier

	// Threshold - требуемое значение счётчика бейджа.
	Threshold int

	// PointReward - очки за получение тира.
	PointReward Points
}

// BadgeDefinition - определение бейджа в каталоге. Бейдж привязан
// к одному счётчику статистики и имеет тиры со строго возрастающими
// порогами.
type BadgeDefinition struct {
	// ID - идентификатор бейджа.
	ID BadgeID

	// Name - человекочитаемое имя.
	Name string

	// Description - описание бейджа.
	Description string

	// Stat - счётчик, по которому оцениваются тиры.
	Stat StatName

	// Tiers - тиры в порядке возрастания порогов.
	Tiers []TierRequirement
}

// Validate проверяет определение бейджа.
func (b BadgeDefinition) Validate() error {
	if !b.ID.IsValid() {
		return fmt.Errorf("catalog: %w: badge %q", shared.ErrInvalidID, b.ID)
	}
	if !b.Stat.IsValid() {
		return fmt.Errorf("catalog: badge %s: %w: %q", b.ID, ErrUnknownStat, b.Stat)
	}
	if len(b.Tiers) == 0 {
		return fmt.Errorf("catalog: badge %s: %w: no tiers", b.ID, shared.ErrInvalidEntity)
	}

	prevOrder := 0
	prevThreshold := 0
	for _, tr := range b.Tiers {
		if !tr.Tier.IsValid() {
			return fmt.Errorf("catalog: badge %s: %w: %q", b.ID, shared.ErrInvalidTier, tr.Tier)
		}
		if tr.Tier.Order() <= prevOrder {
			return fmt.Errorf("catalog: badge %s: %w: at %s", b.ID, shared.ErrNonAscendingTiers, tr.Tier)
		}
		if tr.Threshold <= prevThreshold {
			return fmt.Errorf("catalog: badge %s: %w: threshold %d at %s",
				b.ID, shared.ErrNonAscendingTiers, tr.Threshold, tr.Tier)
		}
		if tr.PointReward < 0 {
			return fmt.Errorf("catalog: badge %s: %w: reward %d",
				b.ID, shared.ErrNegativeValue, tr.PointReward)
		}
		prevOrder = tr.Tier.Order()
		prevThreshold = tr.Threshold
	}
	return nil
}

// AchievementDefinition - определение одноразового достижения.
// В отличие от бейджа у достижения нет тиров: оно либо разблокировано,
// либо нет.
type AchievementDefinition struct {
	// ID - идентификатор достижения.
	ID AchievementID

	// Name - человекочитаемое имя.
	Name string

	// Description - описание достижения.
	Description string

	// Requirements - условия разблокировки (все должны выполняться).
	Requirements []Requirement

	// PointReward - очки за разблокировку.
	PointReward Points
}

// Validate проверяет определение достижения.
func (a AchievementDefinition) Validate() error {
	if !a.ID.IsValid() {
		return fmt.Errorf("catalog: %w: achievement %q", shared.ErrInvalidID, a.ID)
	}
	if len(a.Requirements) == 0 {
		return fmt.Errorf("catalog: achievement %s: %w: no requirements", a.ID, shared.ErrInvalidEntity)
	}
	for _, r := range a.Requirements {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("catalog: achievement %s: %w", a.ID, err)
		}
	}
	if a.PointReward < 0 {
		return fmt.Errorf("catalog: achievement %s: %w: reward %d",
			a.ID, shared.ErrNegativeValue, a.PointReward)
	}
	return nil
}

// SatisfiedBy проверяет, выполнены ли все условия достижения.
func (a AchievementDefinition) SatisfiedBy(p *UserProgression) bool {
	for _, r := range a.Requirements {
		if !r.SatisfiedBy(p) {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS (SCORING)
// ══════════════════════════════════════════════════════════════════════════════

// DomainEventType - тип входящего события платформы.
type DomainEventType string

const (
	// EventLessonCompleted - завершён урок.
	EventLessonCompleted DomainEventType = "lesson_completed"
	// EventQuizScored - оценён квиз.
	EventQuizScored DomainEventType = "quiz_scored"
	// EventSpeciesIdentified - определён вид морского обитателя.
	EventSpeciesIdentified DomainEventType = "species_identified"
	// EventCitizenScience - принят вклад в гражданскую науку.
	EventCitizenScience DomainEventType = "citizen_science_submitted"
	// EventDailyLogin - ежедневный вход на платформу.
	EventDailyLogin DomainEventType = "daily_login"
	// EventTimeLogged - учтено время на платформе.
	EventTimeLogged DomainEventType = "time_logged"
)

// EventDefinition описывает, как событие влияет на прогрессию:
// сколько очков начислять и какие счётчики двигать.
type EventDefinition struct {
	// Type - тип события.
	Type DomainEventType

	// BasePoints - базовое начисление очков.
	BasePoints Points

	// Stat - счётчик, увеличиваемый на 1 (пустой - не двигаем).
	Stat StatName

	// StreakRelevant - событие продлевает серию дней.
	StreakRelevant bool
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - полный каталог движка: таблица уровней, определения
// событий, бейджей и достижений. Каталог иммутабелен после загрузки;
// Validate вызывается один раз при старте приложения.
type Catalog struct {
	// LevelThresholds - минимальные очки для каждого уровня.
	// Индекс i соответствует уровню i+1; первый элемент всегда 0.
	LevelThresholds []Points

	// Events - определения событий по типу.
	Events map[DomainEventType]EventDefinition

	// Badges - определения бейджей по идентификатору.
	Badges map[BadgeID]BadgeDefinition

	// Achievements - определения достижений по идентификатору.
	Achievements map[AchievementID]AchievementDefinition

	// StreakMilestones - длины серий, за которые полагается бонус.
	StreakMilestones []int
}

// Validate проверяет согласованность каталога.
func (c *Catalog) Validate() error {
	if len(c.LevelThresholds) == 0 {
		return shared.ErrEmptyLevelThresholds
	}
	if c.LevelThresholds[0] != 0 {
		return fmt.Errorf("catalog: first level threshold must be 0, got %d", c.LevelThresholds[0])
	}
	for i := 1; i < len(c.LevelThresholds); i++ {
		if c.LevelThresholds[i] <= c.LevelThresholds[i-1] {
			return fmt.Errorf("catalog: level thresholds must strictly increase at level %d", i+1)
		}
	}

	for t, def := range c.Events {
		if def.Type != t {
			return fmt.Errorf("catalog: event %q registered under key %q", def.Type, t)
		}
		if def.BasePoints < 0 {
			return fmt.Errorf("catalog: event %q: %w: base points %d",
				t, shared.ErrNegativeValue, def.BasePoints)
		}
		if def.Stat != "" && !def.Stat.IsValid() {
			return fmt.Errorf("catalog: event %q: %w: %q", t, ErrUnknownStat, def.Stat)
		}
	}

	for id, b := range c.Badges {
		if b.ID != id {
			return fmt.Errorf("catalog: badge %q registered under key %q", b.ID, id)
		}
		if err := b.Validate(); err != nil {
			return err
		}
	}

	for id, a := range c.Achievements {
		if a.ID != id {
			return fmt.Errorf("catalog: achievement %q registered under key %q", a.ID, id)
		}
		if err := a.Validate(); err != nil {
			return err
		}
	}

	prev := 0
	for _, m := range c.StreakMilestones {
		if m <= prev {
			return fmt.Errorf("catalog: streak milestones must strictly increase at %d", m)
		}
		prev = m
	}

	return nil
}

// Event возвращает определение события или ошибку для неизвестного типа.
func (c *Catalog) Event(t DomainEventType) (EventDefinition, error) {
	def, ok := c.Events[t]
	if !ok {
		return EventDefinition{}, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
	return def, nil
}

// Badge возвращает определение бейджа.
func (c *Catalog) Badge(id BadgeID) (BadgeDefinition, error) {
	b, ok := c.Badges[id]
	if !ok {
		return BadgeDefinition{}, shared.ErrBadgeNotFound
	}
	return b, nil
}

// Achievement возвращает определение достижения.
func (c *Catalog) Achievement(id AchievementID) (AchievementDefinition, error) {
	a, ok := c.Achievements[id]
	if !ok {
		return AchievementDefinition{}, shared.ErrAchievementNotFound
	}
	return a, nil
}

// MaxLevel возвращает наивысший уровень таблицы.
func (c *Catalog) MaxLevel() Level {
	return Level(len(c.LevelThresholds))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Идентификаторы бейджей каталога по умолчанию.
const (
	BadgeReefExplorer     BadgeID = "REEF_EXPLORER"
	BadgeQuizMaster       BadgeID = "QUIZ_MASTER"
	BadgeSpeciesSpotter   BadgeID = "SPECIES_SPOTTER"
	BadgeCitizenScientist BadgeID = "CITIZEN_SCIENTIST"
	BadgeStreakKeeper     BadgeID = "STREAK_KEEPER"
)

// Идентификаторы достижений каталога по умолчанию.
const (
	AchievementFirstSplash     AchievementID = "FIRST_SPLASH"
	AchievementPerfectDive     AchievementID = "PERFECT_DIVE"
	AchievementReefScholar     AchievementID = "REEF_SCHOLAR"
	AchievementOceanAmbassador AchievementID = "OCEAN_AMBASSADOR"
	AchievementDeepDiver       AchievementID = "DEEP_DIVER"
	AchievementWellRounded     AchievementID = "WELL_ROUNDED"
)

// DefaultCatalog возвращает каталог Reef Academy по умолчанию.
func DefaultCatalog() *Catalog {
	return &Catalog{
		LevelThresholds: []Points{
			0, 100, 300, 600, 1000, 1500, 2200, 3000, 4000, 5200, 6600, 8200, 10000,
		},

		Events: map[DomainEventType]EventDefinition{
			EventLessonCompleted: {
				Type:           EventLessonCompleted,
				BasePoints:     50,
				Stat:           StatLessonsCompleted,
				StreakRelevant: true,
			},
			EventQuizScored: {
				Type:           EventQuizScored,
				BasePoints:     20,
				Stat:           StatQuizzesTaken,
				StreakRelevant: true,
			},
			EventSpeciesIdentified: {
				Type:           EventSpeciesIdentified,
				BasePoints:     15,
				Stat:           StatSpeciesIdentified,
				StreakRelevant: true,
			},
			EventCitizenScience: {
				Type:           EventCitizenScience,
				BasePoints:     75,
				Stat:           StatCitizenScience,
				StreakRelevant: true,
			},
			EventDailyLogin: {
				Type:           EventDailyLogin,
				BasePoints:     5,
				StreakRelevant: true,
			},
			EventTimeLogged: {
				Type:       EventTimeLogged,
				BasePoints: 0,
				Stat:       StatTimeSpent,
			},
		},

		Badges: map[BadgeID]BadgeDefinition{
			BadgeReefExplorer: {
				ID:          BadgeReefExplorer,
				Name:        "Reef Explorer",
				Description: "Complete lessons across the reef curriculum",
				Stat:        StatLessonsCompleted,
				Tiers: []TierRequirement{
					{Tier: TierBronze, Threshold: 5, PointReward: 25},
					{Tier: TierSilver, Threshold: 20, PointReward: 75},
					{Tier: TierGold, Threshold: 50, PointReward: 200},
					{Tier: TierPlatinum, Threshold: 120, PointReward: 500},
				},
			},
			BadgeQuizMaster: {
				ID:          BadgeQuizMaster,
				Name:        "Quiz Master",
				Description: "Pass quizzes with a perfect score",
				Stat:        StatPerfectQuizzes,
				Tiers: []TierRequirement{
					{Tier: TierBronze, Threshold: 3, PointReward: 30},
					{Tier: TierSilver, Threshold: 10, PointReward: 100},
					{Tier: TierGold, Threshold: 25, PointReward: 250},
					{Tier: TierPlatinum, Threshold: 60, PointReward: 600},
				},
			},
			BadgeSpeciesSpotter: {
				ID:          BadgeSpeciesSpotter,
				Name:        "Species Spotter",
				Description: "Identify marine species in the field guide",
				Stat:        StatSpeciesIdentified,
				Tiers: []TierRequirement{
					{Tier: TierBronze, Threshold: 10, PointReward: 25},
					{Tier: TierSilver, Threshold: 40, PointReward: 75},
					{Tier: TierGold, Threshold: 100, PointReward: 200},
					{Tier: TierPlatinum, Threshold: 250, PointReward: 500},
				},
			},
			BadgeCitizenScientist: {
				ID:          BadgeCitizenScientist,
				Name:        "Citizen Scientist",
				Description: "Contribute observations to live research projects",
				Stat:        StatCitizenScience,
				Tiers: []TierRequirement{
					{Tier: TierBronze, Threshold: 1, PointReward: 50},
					{Tier: TierSilver, Threshold: 5, PointReward: 150},
					{Tier: TierGold, Threshold: 15, PointReward: 400},
					{Tier: TierPlatinum, Threshold: 40, PointReward: 1000},
				},
			},
			BadgeStreakKeeper: {
				ID:          BadgeStreakKeeper,
				Name:        "Streak Keeper",
				Description: "Stay active day after day",
				Stat:        StatStreakDays,
				Tiers: []TierRequirement{
					{Tier: TierBronze, Threshold: 7, PointReward: 70},
					{Tier: TierSilver, Threshold: 15, PointReward: 150},
					{Tier: TierGold, Threshold: 30, PointReward: 300},
					{Tier: TierPlatinum, Threshold: 60, PointReward: 600},
				},
			},
		},

		Achievements: map[AchievementID]AchievementDefinition{
			AchievementFirstSplash: {
				ID:          AchievementFirstSplash,
				Name:        "First Splash",
				Description: "Complete your very first lesson",
				Requirements: []Requirement{
					StatThreshold(StatLessonsCompleted, 1),
				},
				PointReward: 10,
			},
			AchievementPerfectDive: {
				ID:          AchievementPerfectDive,
				Name:        "Perfect Dive",
				Description: "Score 100% on a quiz",
				Requirements: []Requirement{
					StatThreshold(StatPerfectQuizzes, 1),
				},
				PointReward: 25,
			},
			AchievementReefScholar: {
				ID:          AchievementReefScholar,
				Name:        "Reef Scholar",
				Description: "Complete ten lessons",
				Requirements: []Requirement{
					StatThreshold(StatLessonsCompleted, 10),
				},
				PointReward: 100,
			},
			AchievementOceanAmbassador: {
				ID:          AchievementOceanAmbassador,
				Name:        "Ocean Ambassador",
				Description: "Reach level 5 and contribute to citizen science",
				Requirements: []Requirement{
					LevelReached(5),
					StatThreshold(StatCitizenScience, 1),
				},
				PointReward: 150,
			},
			AchievementDeepDiver: {
				ID:          AchievementDeepDiver,
				Name:        "Deep Diver",
				Description: "Spend twenty hours exploring the platform",
				Requirements: []Requirement{
					StatThreshold(StatTimeSpent, 1200),
				},
				PointReward: 200,
			},
			AchievementWellRounded: {
				ID:          AchievementWellRounded,
				Name:        "Well-Rounded",
				Description: "Collect six badge tiers across the catalog",
				Requirements: []Requirement{
					BadgeCount(6),
				},
				PointReward: 250,
			},
		},

		StreakMilestones: []int{7, 15, 30, 60},
	}
}
