package progression

// LevelCalculator вычисляет уровень из очков по таблице порогов каталога.
// Уровень - чистая функция от очков: калькулятор не хранит состояния
// и безопасен для конкурентного использования.
type LevelCalculator struct {
	thresholds []Points
}

// NewLevelCalculator создаёт калькулятор над таблицей каталога.
// Каталог валидируется при старте, поэтому таблица здесь считается корректной.
func NewLevelCalculator(catalog *Catalog) *LevelCalculator {
	return &LevelCalculator{thresholds: catalog.LevelThresholds}
}

// LevelFor возвращает уровень для заданных очков: наивысший уровень,
// чей порог не превышает points. За пределами таблицы уровень
// удерживается на последнем значении.
func (c *LevelCalculator) LevelFor(points Points) Level {
	// Бинарный поиск по возрастающей таблице порогов.
	lo, hi := 0, len(c.thresholds)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.thresholds[mid] <= points {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Level(lo + 1)
}

// PointsToNext возвращает, сколько очков не хватает до следующего уровня,
// и false на последнем уровне таблицы.
func (c *LevelCalculator) PointsToNext(points Points) (Points, bool) {
	level := c.LevelFor(points)
	if int(level) >= len(c.thresholds) {
		return 0, false
	}
	return c.thresholds[level] - points, true
}

// CheckLevelUp пересчитывает уровень после изменения очков и сохраняет
// его, только если он строго вырос. Автоматического понижения уровня
// нет: административная коррекция вниз оставляет уровень как есть.
// Возвращает старый и новый уровни и признак повышения.
func (c *LevelCalculator) CheckLevelUp(p *UserProgression) (old, current Level, leveledUp bool) {
	old = p.CurrentLevel
	derived := c.LevelFor(p.TotalPoints)
	if derived > old {
		p.CurrentLevel = derived
		p.touch()
		return old, derived, true
	}
	return old, old, false
}
