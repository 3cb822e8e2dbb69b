package progression

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ledger - единственная точка изменения очков. Все начисления проходят
// валидацию здесь и попадают в append-only историю агрегата.
type Ledger struct{}

// NewLedger создаёт леджер.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Award начисляет очки за обычную активность. Сумма обязана быть
// строго положительным целым; дробные и нулевые суммы отклоняются
// ещё на границе API, здесь - последняя линия защиты.
func (l *Ledger) Award(p *UserProgression, amount Points, reason string) (PointEntry, error) {
	if amount <= 0 {
		return PointEntry{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if strings.TrimSpace(reason) == "" {
		return PointEntry{}, ErrEmptyReason
	}

	entry := PointEntry{
		ID:        uuid.New().String(),
		Amount:    amount,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	p.appendPoints(entry)
	return entry, nil
}

// Correct применяет административную коррекцию. Это единственный путь,
// которым очки могут уменьшиться. Коррекция не может увести сумму ниже
// нуля и всегда оставляет след в истории с префиксом admin_correction.
func (l *Ledger) Correct(p *UserProgression, delta Points, reason string) (PointEntry, error) {
	if delta == 0 {
		return PointEntry{}, ErrInvalidCorrection
	}
	if strings.TrimSpace(reason) == "" {
		return PointEntry{}, ErrEmptyReason
	}
	if p.TotalPoints+delta < 0 {
		return PointEntry{}, fmt.Errorf("%w: total %d, delta %d",
			ErrPointsUnderflow, p.TotalPoints, delta)
	}

	entry := PointEntry{
		ID:        uuid.New().String(),
		Amount:    delta,
		Reason:    AdminCorrectionPrefix + reason,
		Timestamp: time.Now().UTC(),
	}
	p.appendPoints(entry)
	return entry, nil
}

// History возвращает записи истории, новые первыми, со смещением и лимитом.
func (l *Ledger) History(p *UserProgression, offset, limit int) []PointEntry {
	n := len(p.PointHistory)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= n {
		return nil
	}

	out := make([]PointEntry, 0, limit)
	// История хранится в порядке записи; отдаём с конца.
	for i := n - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, p.PointHistory[i])
	}
	return out
}
