// Package progression содержит доменную модель прогрессии Reef Academy.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package progression

import (
	"fmt"
	"strings"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Points представляет накопленные очки пользователя.
type Points int

// IsValid проверяет, что количество очков неотрицательное.
func (p Points) IsValid() bool {
	return p >= 0
}

// Add складывает очки.
func (p Points) Add(delta Points) Points {
	return p + delta
}

// Int возвращает очки как int.
func (p Points) Int() int {
	return int(p)
}

// Level представляет уровень пользователя, вычисляемый из очков.
// Уровень - это кеш производного значения, а не источник истины.
type Level int

// IsValid проверяет, что уровень не меньше первого.
func (l Level) IsValid() bool {
	return l >= 1
}

// Int возвращает уровень как int.
func (l Level) Int() int {
	return int(l)
}

// Tier представляет тир бейджа. Тиры строго упорядочены.
type Tier string

const (
	// TierBronze - первый тир.
	TierBronze Tier = "bronze"
	// TierSilver - второй тир.
	TierSilver Tier = "silver"
	// TierGold - третий тир.
	TierGold Tier = "gold"
	// TierPlatinum - высший тир.
	TierPlatinum Tier = "platinum"
)

// tierOrder задаёт порядок тиров для сравнения.
var tierOrder = map[Tier]int{
	TierBronze:   1,
	TierSilver:   2,
	TierGold:     3,
	TierPlatinum: 4,
}

// IsValid проверяет, что тир известен.
func (t Tier) IsValid() bool {
	_, ok := tierOrder[t]
	return ok
}

// Order возвращает порядковый номер тира (bronze=1 ... platinum=4).
func (t Tier) Order() int {
	return tierOrder[t]
}

// Before возвращает true, если тир строго ниже другого.
func (t Tier) Before(other Tier) bool {
	return t.Order() < other.Order()
}

// String возвращает строковое представление тира.
func (t Tier) String() string {
	return string(t)
}

// AllTiers возвращает тиры в порядке возрастания.
func AllTiers() []Tier {
	return []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}
}

// StatName представляет имя счётчика статистики.
type StatName string

const (
	// StatLessonsCompleted - завершённые уроки.
	StatLessonsCompleted StatName = "lessonsCompleted"
	// StatQuizzesTaken - пройденные квизы.
	StatQuizzesTaken StatName = "quizzesTaken"
	// StatPerfectQuizzes - квизы, пройденные без единой ошибки.
	StatPerfectQuizzes StatName = "perfectQuizzes"
	// StatSpeciesIdentified - определённые виды морских обитателей.
	StatSpeciesIdentified StatName = "speciesIdentified"
	// StatCitizenScience - вклады в гражданскую науку.
	StatCitizenScience StatName = "citizenScienceContributions"
	// StatTimeSpent - суммарное время на платформе в минутах.
	StatTimeSpent StatName = "timeSpent"
	// StatStreakDays - текущая серия дней (виртуальный счётчик для бейджей серии).
	StatStreakDays StatName = "streakDays"
)

// KnownStats возвращает все известные счётчики статистики.
func KnownStats() []StatName {
	return []StatName{
		StatLessonsCompleted,
		StatQuizzesTaken,
		StatPerfectQuizzes,
		StatSpeciesIdentified,
		StatCitizenScience,
		StatTimeSpent,
		StatStreakDays,
	}
}

// IsValid проверяет, что имя счётчика известно.
func (s StatName) IsValid() bool {
	for _, known := range KnownStats() {
		if s == known {
			return true
		}
	}
	return false
}

// BadgeID представляет идентификатор бейджа в каталоге.
type BadgeID string

// IsValid проверяет формат идентификатора бейджа (SCREAMING_SNAKE_CASE).
func (b BadgeID) IsValid() bool {
	s := string(b)
	if len(s) < 2 || len(s) > 50 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// String возвращает строковое представление.
func (b BadgeID) String() string {
	return string(b)
}

// AchievementID представляет идентификатор достижения в каталоге.
type AchievementID string

// IsValid проверяет формат идентификатора достижения.
func (a AchievementID) IsValid() bool {
	return BadgeID(a).IsValid()
}

// String возвращает строковое представление.
func (a AchievementID) String() string {
	return string(a)
}

// ══════════════════════════════════════════════════════════════════════════════
// POINT HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// PointEntry - одна запись в истории очков. История append-only:
// записи никогда не изменяются и не удаляются.
type PointEntry struct {
	// ID - уникальный идентификатор записи.
	ID string

	// Amount - изменение очков (отрицательное только для админ-коррекций).
	Amount Points

	// Reason - причина начисления (например, "lesson_completed",
	// "badge:REEF_EXPLORER:gold", "admin_correction:duplicate_import").
	Reason string

	// Timestamp - время начисления.
	Timestamp time.Time
}

// IsCorrection возвращает true для административных коррекций.
func (e PointEntry) IsCorrection() bool {
	return strings.HasPrefix(e.Reason, AdminCorrectionPrefix)
}

// AdminCorrectionPrefix помечает записи административных коррекций.
const AdminCorrectionPrefix = "admin_correction:"

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

// AwardedBadge представляет выданную пару (бейдж, тир).
type AwardedBadge struct {
	// BadgeID - идентификатор бейджа.
	BadgeID BadgeID

	// Tier - выданный тир.
	Tier Tier

	// AwardedAt - время выдачи.
	AwardedAt time.Time

	// PointReward - начисленные за тир очки.
	PointReward Points
}

// Key возвращает уникальный ключ пары (бейдж, тир).
func (b AwardedBadge) Key() string {
	return string(b.BadgeID) + ":" + string(b.Tier)
}

// UnlockedAchievement представляет разблокированное достижение.
type UnlockedAchievement struct {
	// AchievementID - идентификатор достижения.
	AchievementID AchievementID

	// UnlockedAt - время разблокировки.
	UnlockedAt time.Time

	// PointReward - начисленные очки.
	PointReward Points
}

// UserProgression - центральная сущность движка: агрегат прогрессии
// одного пользователя. Создаётся с нулевыми полями при регистрации и
// мутируется исключительно через ProgressionFacade (command-слой).
type UserProgression struct {
	// UserID - неизменяемый идентификатор пользователя.
	UserID shared.UserID

	// OrgID - организация (школа/клуб) для скоупа лидерборда.
	OrgID shared.OrgID

	// TotalPoints - накопленные очки; при обычной работе не убывают,
	// уменьшить их может только административная коррекция.
	TotalPoints Points

	// CurrentLevel - сохранённый уровень. Всегда равен LevelCalculator(points)
	// на момент последнего повышения; автоматически никогда не понижается.
	CurrentLevel Level

	// Streak - текущая серия дней активности.
	Streak int

	// LastActiveDate - календарная дата (UTC) последней streak-активности.
	// Меняется только вместе со Streak.
	LastActiveDate shared.Day

	// Stats - счётчики статистики по именам.
	Stats map[StatName]int

	// Badges - выданные пары (бейдж, тир); каждая встречается не более раза.
	Badges map[string]AwardedBadge

	// Achievements - разблокированные достижения.
	Achievements map[AchievementID]UnlockedAchievement

	// PointHistory - append-only история начислений.
	PointHistory []PointEntry

	// ProcessedEvents - ключи уже учтённых событий и время их обработки.
	// Защита от повторной доставки: событие с известным ключом - no-op.
	ProcessedEvents map[string]time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time

	// Version - версия записи для оптимистичной блокировки.
	Version int64
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Все ошибки несут валидационный Kind из shared, чтобы интерфейсный слой
// отличал ошибки клиента от сбоев движка.
var (
	// ErrInvalidAmount - невалидная сумма очков для обычного начисления.
	ErrInvalidAmount = shared.ErrInvalidPointAmount

	// ErrInvalidCorrection - невалидная административная коррекция.
	ErrInvalidCorrection = shared.NewDomainError("progression", "Correct", shared.ErrValidation, "correction delta must be non-zero")

	// ErrPointsUnderflow - коррекция увела бы очки ниже нуля.
	ErrPointsUnderflow = shared.NewDomainError("progression", "Correct", shared.ErrValidation, "correction would make total points negative")

	// ErrEmptyReason - причина начисления обязательна.
	ErrEmptyReason = shared.NewDomainError("progression", "AddPoints", shared.ErrValidation, "point reason is required")

	// ErrClockSkew - активность датирована раньше последней учтённой.
	ErrClockSkew = shared.ErrStreakClockSkew

	// ErrUnknownEventType - неизвестный тип доменного события.
	ErrUnknownEventType = shared.ErrUnknownEventType

	// ErrUnknownStat - неизвестный счётчик статистики.
	ErrUnknownStat = shared.NewDomainError("progression", "IncrementStat", shared.ErrInvalidInput, "unknown stat counter")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewUserProgression создаёт нулевую запись прогрессии для нового пользователя.
// Вызывается ровно один раз при регистрации; ленивое создание запрещено.
func NewUserProgression(userID shared.UserID, orgID shared.OrgID) (*UserProgression, error) {
	if !userID.IsValid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidUserID, userID)
	}
	if !orgID.IsValid() {
		return nil, fmt.Errorf("progression: %w: org %q", shared.ErrInvalidID, orgID)
	}

	now := time.Now().UTC()

	return &UserProgression{
		UserID:          userID,
		OrgID:           orgID,
		TotalPoints:     0,
		CurrentLevel:    1,
		Streak:          0,
		LastActiveDate:  shared.Day{},
		Stats:           make(map[StatName]int),
		Badges:          make(map[string]AwardedBadge),
		Achievements:    make(map[AchievementID]UnlockedAchievement),
		PointHistory:    nil,
		ProcessedEvents: make(map[string]time.Time),
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         0,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// Stat возвращает значение счётчика (0, если счётчик ещё не встречался).
func (p *UserProgression) Stat(name StatName) int {
	return p.Stats[name]
}

// IncrementStat увеличивает счётчик статистики.
func (p *UserProgression) IncrementStat(name StatName, delta int) error {
	if !name.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}
	if delta < 0 {
		return fmt.Errorf("progression: %w: stat delta %d", shared.ErrNegativeValue, delta)
	}
	if p.Stats == nil {
		p.Stats = make(map[StatName]int)
	}
	p.Stats[name] += delta
	p.touch()
	return nil
}

// HasBadge проверяет, выдана ли уже пара (бейдж, тир).
func (p *UserProgression) HasBadge(badgeID BadgeID, tier Tier) bool {
	_, ok := p.Badges[string(badgeID)+":"+string(tier)]
	return ok
}

// grantBadge вставляет пару (бейдж, тир). Возвращает false без мутации,
// если пара уже есть - это центральная идемпотентная защита награждения.
func (p *UserProgression) grantBadge(badge AwardedBadge) bool {
	if p.HasBadge(badge.BadgeID, badge.Tier) {
		return false
	}
	if p.Badges == nil {
		p.Badges = make(map[string]AwardedBadge)
	}
	p.Badges[badge.Key()] = badge
	p.touch()
	return true
}

// HasAchievement проверяет, разблокировано ли достижение.
func (p *UserProgression) HasAchievement(id AchievementID) bool {
	_, ok := p.Achievements[id]
	return ok
}

// unlockAchievement вставляет достижение. Возвращает false без мутации,
// если оно уже разблокировано.
func (p *UserProgression) unlockAchievement(a UnlockedAchievement) bool {
	if p.HasAchievement(a.AchievementID) {
		return false
	}
	if p.Achievements == nil {
		p.Achievements = make(map[AchievementID]UnlockedAchievement)
	}
	p.Achievements[a.AchievementID] = a
	p.touch()
	return true
}

// appendPoints добавляет запись в историю и обновляет сумму.
// Вызывается только из Ledger после валидации.
func (p *UserProgression) appendPoints(entry PointEntry) {
	p.PointHistory = append(p.PointHistory, entry)
	p.TotalPoints = p.TotalPoints.Add(entry.Amount)
	p.touch()
}

// HasProcessedEvent сообщает, было ли событие с этим ключом уже учтено.
func (p *UserProgression) HasProcessedEvent(key string) bool {
	if key == "" {
		return false
	}
	_, ok := p.ProcessedEvents[key]
	return ok
}

// MarkEventProcessed запоминает ключ обработанного события.
// Пустой ключ игнорируется: такие события защитой не покрываются.
func (p *UserProgression) MarkEventProcessed(key string, at time.Time) {
	if key == "" {
		return
	}
	if p.ProcessedEvents == nil {
		p.ProcessedEvents = make(map[string]time.Time)
	}
	p.ProcessedEvents[key] = at.UTC()
	p.touch()
}

// setStreak обновляет серию и дату последней активности одной операцией.
// Инвариант: эти два поля никогда не меняются по отдельности.
func (p *UserProgression) setStreak(streak int, lastActive shared.Day) {
	p.Streak = streak
	p.LastActiveDate = lastActive
	if p.Stats == nil {
		p.Stats = make(map[StatName]int)
	}
	if streak > p.Stats[StatStreakDays] {
		p.Stats[StatStreakDays] = streak
	}
	p.touch()
}

// touch обновляет время последнего изменения.
func (p *UserProgression) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// BadgeList возвращает выданные бейджи срезом (порядок не гарантируется).
func (p *UserProgression) BadgeList() []AwardedBadge {
	out := make([]AwardedBadge, 0, len(p.Badges))
	for _, b := range p.Badges {
		out = append(out, b)
	}
	return out
}

// AchievementList возвращает разблокированные достижения срезом.
func (p *UserProgression) AchievementList() []UnlockedAchievement {
	out := make([]UnlockedAchievement, 0, len(p.Achievements))
	for _, a := range p.Achievements {
		out = append(out, a)
	}
	return out
}

// String возвращает строковое представление для логирования.
func (p *UserProgression) String() string {
	return fmt.Sprintf(
		"UserProgression{User: %s, Points: %d, Level: %d, Streak: %d, Badges: %d, Achievements: %d}",
		p.UserID, p.TotalPoints, p.CurrentLevel, p.Streak, len(p.Badges), len(p.Achievements),
	)
}

// Clone создаёт глубокую копию агрегата.
func (p *UserProgression) Clone() *UserProgression {
	if p == nil {
		return nil
	}

	clone := *p

	clone.Stats = make(map[StatName]int, len(p.Stats))
	for k, v := range p.Stats {
		clone.Stats[k] = v
	}

	clone.Badges = make(map[string]AwardedBadge, len(p.Badges))
	for k, v := range p.Badges {
		clone.Badges[k] = v
	}

	clone.Achievements = make(map[AchievementID]UnlockedAchievement, len(p.Achievements))
	for k, v := range p.Achievements {
		clone.Achievements[k] = v
	}

	clone.PointHistory = make([]PointEntry, len(p.PointHistory))
	copy(clone.PointHistory, p.PointHistory)

	clone.ProcessedEvents = make(map[string]time.Time, len(p.ProcessedEvents))
	for k, v := range p.ProcessedEvents {
		clone.ProcessedEvents[k] = v
	}

	return &clone
}
