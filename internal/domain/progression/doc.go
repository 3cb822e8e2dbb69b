// Package progression содержит доменную модель прогрессии Reef Academy.
//
// Это ядро бизнес-логики системы "Reef Progression Hub". Пакет определяет:
//
//   - Сущности (Entities): UserProgression, PointEntry
//   - Value Objects: Points, Level, Tier, StatName, EventType
//   - Каталоги: BadgeDefinition, AchievementDefinition, LevelTable (неизменяемые)
//   - Доменные сервисы: Ledger, LevelCalculator, StreakTracker,
//     BadgeAwarder, AchievementEvaluator
//   - Интерфейс репозитория: Repository
//
// # Архитектурные принципы
//
// Пакет следует принципам Clean Architecture и DDD:
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - определяет интерфейсы, которые реализуются в infrastructure
//  3. Rich Domain Model - бизнес-логика инкапсулирована в сущностях
//
// # Ключевые гарантии
//
// Движок прогрессии обязан оставаться корректным при повторных и
// конкурентных вызовах:
//
//   - уровень всегда выводится из очков (кеш, а не источник истины);
//   - пара (бейдж, тир) выдаётся не более одного раза;
//   - достижение разблокируется не более одного раза;
//   - streak и lastActiveDate меняются только вместе;
//   - история очков append-only и никогда не переписывается.
//
// # Пример использования
//
// Вся мутация агрегата проходит через доменные сервисы внутри одной
// единицы repository.Update:
//
//	p, _ := NewUserProgression(userID, orgID)
//
//	ledger := NewLedger()
//	total, err := ledger.Award(p, 50, "lesson_completed", time.Now())
//
//	calc := NewLevelCalculator(catalog.Levels)
//	res := calc.CheckLevelUp(p)
//	if res.LeveledUp {
//	    // событие level_up
//	}
//
//	awarder := NewBadgeAwarder(ledger)
//	newTiers := awarder.AwardQualified(p, badgeDef, p.Stat(StatLessonsCompleted), time.Now())
//
// Каталоги бейджей, достижений и таблица уровней загружаются один раз
// при старте и неизменяемы во время работы.
package progression
