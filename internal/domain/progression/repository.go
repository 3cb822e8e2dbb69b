package progression

import (
	"context"
	"time"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Mutator применяется к агрегату внутри транзакции Update. Мутатор
// обязан быть чистым относительно переданного агрегата: при конфликте
// версий он будет вызван повторно на свежем состоянии.
type Mutator func(p *UserProgression) error

// Repository определяет операции хранения записей прогрессии.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт нулевую запись прогрессии.
	// Возвращает ErrProgressionAlreadyExists, если запись уже есть.
	Create(ctx context.Context, p *UserProgression) error

	// Get возвращает запись прогрессии пользователя.
	// Возвращает ErrProgressionNotFound, если записи нет.
	Get(ctx context.Context, userID shared.UserID) (*UserProgression, error)

	// Update атомарно применяет мутатор к записи пользователя.
	// Чтение, мутация и запись выполняются в одной транзакции; при
	// конфликте версий возвращает shared.ErrOptimisticLock, и вызывающий
	// может повторить операцию целиком.
	Update(ctx context.Context, userID shared.UserID, fn Mutator) (*UserProgression, error)

	// Exists проверяет существование записи.
	Exists(ctx context.Context, userID shared.UserID) (bool, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Bulk Operations
	// ─────────────────────────────────────────────────────────────────────────

	// List возвращает записи прогрессии с пагинацией.
	List(ctx context.Context, opts ListOptions) ([]*UserProgression, error)

	// Count возвращает общее количество записей.
	Count(ctx context.Context) (int, error)

	// TopByPoints возвращает записи, отсортированные по очкам по убыванию.
	// Используется планировщиком для перестроения лидерборда.
	TopByPoints(ctx context.Context, orgID shared.OrgID, limit int) ([]*UserProgression, error)
}

// ListOptions содержит параметры для пагинации.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// OrgID - фильтр по организации (пустой - все).
	OrgID shared.OrgID
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset: 0,
		Limit:  50,
	}
}

// WithOffset устанавливает смещение.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit устанавливает лимит.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithOrg ограничивает выборку организацией.
func (o ListOptions) WithOrg(orgID shared.OrgID) ListOptions {
	o.OrgID = orgID
	return o
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// Рейтинги по очкам, стрикам и уровням; обычно реализуются через
// Redis sorted sets (по одному set на ключ ранжирования).
// ══════════════════════════════════════════════════════════════════════════════

// RankingKey - критерий ранжирования лидерборда.
type RankingKey string

const (
	// RankByPoints - ранжирование по суммарным очкам.
	RankByPoints RankingKey = "points"

	// RankByStreak - ранжирование по текущему стрику.
	RankByStreak RankingKey = "streak"

	// RankByLevel - ранжирование по уровню.
	RankByLevel RankingKey = "level"
)

// ErrInvalidRankingKey возвращается при неизвестном ключе ранжирования.
var ErrInvalidRankingKey = shared.ErrInvalidRankingKey

// ParseRankingKey разбирает ключ ранжирования; пустая строка - очки.
func ParseRankingKey(s string) (RankingKey, error) {
	switch RankingKey(s) {
	case RankByPoints, RankByStreak, RankByLevel:
		return RankingKey(s), nil
	case "":
		return RankByPoints, nil
	default:
		return "", ErrInvalidRankingKey
	}
}

// String возвращает строковое представление ключа.
func (k RankingKey) String() string {
	return string(k)
}

// AllRankingKeys возвращает все поддерживаемые ключи ранжирования.
func AllRankingKeys() []RankingKey {
	return []RankingKey{RankByPoints, RankByStreak, RankByLevel}
}

// LeaderboardScore - публичный срез прогрессии пользователя в рейтинге.
type LeaderboardScore struct {
	// Points - суммарные очки.
	Points Points

	// Level - уровень.
	Level Level

	// Streak - текущий стрик в днях.
	Streak int
}

// ScoreOf возвращает срез рейтинга для агрегата.
func ScoreOf(p *UserProgression) LeaderboardScore {
	return LeaderboardScore{
		Points: p.TotalPoints,
		Level:  p.CurrentLevel,
		Streak: p.Streak,
	}
}

// ValueFor возвращает значение среза по ключу ранжирования.
func (s LeaderboardScore) ValueFor(key RankingKey) int {
	switch key {
	case RankByStreak:
		return s.Streak
	case RankByLevel:
		return int(s.Level)
	default:
		return int(s.Points)
	}
}

// LeaderboardEntry - одна строка лидерборда.
type LeaderboardEntry struct {
	// Rank - позиция (1 - лучшая).
	Rank shared.Rank

	// UserID - пользователь.
	UserID shared.UserID

	// Score - публичные поля прогрессии на момент последнего обновления.
	Score LeaderboardScore
}

// LeaderboardStore определяет операции рейтинга.
// Одно хранилище обслуживает все ключи ранжирования в каждой области
// (организация или глобально).
type LeaderboardStore interface {
	// UpdateScore обновляет срез пользователя во всех рейтингах области.
	UpdateScore(ctx context.Context, orgID shared.OrgID, userID shared.UserID, score LeaderboardScore) error

	// Top возвращает страницу рейтинга по заданному ключу.
	Top(ctx context.Context, key RankingKey, orgID shared.OrgID, offset, limit int) ([]LeaderboardEntry, error)

	// RankOf возвращает позицию пользователя по заданному ключу.
	// Возвращает shared.RankUnranked, если пользователя нет в рейтинге.
	RankOf(ctx context.Context, key RankingKey, orgID shared.OrgID, userID shared.UserID) (shared.Rank, error)

	// Around возвращает строки вокруг пользователя (он сам в середине).
	Around(ctx context.Context, key RankingKey, orgID shared.OrgID, userID shared.UserID, radius int) ([]LeaderboardEntry, error)

	// Rebuild полностью перестраивает рейтинги области из переданных строк.
	Rebuild(ctx context.Context, orgID shared.OrgID, entries []LeaderboardEntry) error

	// Size возвращает количество участников рейтинга.
	Size(ctx context.Context, orgID shared.OrgID) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// Для кеширования часто запрашиваемых записей прогрессии.
// ══════════════════════════════════════════════════════════════════════════════

// Cache определяет операции кеширования записей прогрессии.
type Cache interface {
	// Get получает запись из кеша.
	Get(ctx context.Context, userID shared.UserID) (*UserProgression, error)

	// Set сохраняет запись в кеш.
	Set(ctx context.Context, p *UserProgression, ttl time.Duration) error

	// Invalidate удаляет запись из кеша.
	Invalidate(ctx context.Context, userID shared.UserID) error

	// InvalidateAll очищает весь кеш прогрессии.
	InvalidateAll(ctx context.Context) error
}
