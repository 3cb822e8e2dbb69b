package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_AwardAppendsHistory(t *testing.T) {
	ledger := NewLedger()
	p := newTestProgression(t)

	entry, err := ledger.Award(p, 50, "lesson_completed")

	assert.NoError(t, err)
	assert.Equal(t, Points(50), p.TotalPoints)
	assert.Len(t, p.PointHistory, 1)
	assert.Equal(t, "lesson_completed", entry.Reason)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.IsCorrection())
}

func TestLedger_AwardRejectsNonPositive(t *testing.T) {
	ledger := NewLedger()
	p := newTestProgression(t)

	_, err := ledger.Award(p, 0, "lesson_completed")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Award(p, -10, "lesson_completed")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Award(p, 10, "   ")
	assert.ErrorIs(t, err, ErrEmptyReason)

	assert.Equal(t, Points(0), p.TotalPoints)
	assert.Empty(t, p.PointHistory)
}

func TestLedger_CorrectAllowsNegativeDelta(t *testing.T) {
	ledger := NewLedger()
	p := newTestProgression(t)

	_, err := ledger.Award(p, 100, "lesson_completed")
	assert.NoError(t, err)

	entry, err := ledger.Correct(p, -30, "duplicate_import")

	assert.NoError(t, err)
	assert.Equal(t, Points(70), p.TotalPoints)
	assert.Equal(t, "admin_correction:duplicate_import", entry.Reason)
	assert.True(t, entry.IsCorrection())
	assert.Len(t, p.PointHistory, 2)
}

func TestLedger_CorrectRejectsUnderflow(t *testing.T) {
	ledger := NewLedger()
	p := newTestProgression(t)

	_, err := ledger.Award(p, 20, "quiz_scored")
	assert.NoError(t, err)

	_, err = ledger.Correct(p, -21, "oops")

	assert.ErrorIs(t, err, ErrPointsUnderflow)
	assert.Equal(t, Points(20), p.TotalPoints)
	assert.Len(t, p.PointHistory, 1)
}

func TestLedger_CorrectRejectsZeroDelta(t *testing.T) {
	ledger := NewLedger()
	p := newTestProgression(t)

	_, err := ledger.Correct(p, 0, "noop")
	assert.ErrorIs(t, err, ErrInvalidCorrection)
}

func TestLedger_HistoryNewestFirst(t *testing.T) {
	ledger := NewLedger()
	p := newTestProgression(t)

	reasons := []string{"first", "second", "third", "fourth"}
	for _, r := range reasons {
		_, err := ledger.Award(p, 10, r)
		assert.NoError(t, err)
	}

	page := ledger.History(p, 0, 2)
	assert.Len(t, page, 2)
	assert.Equal(t, "fourth", page[0].Reason)
	assert.Equal(t, "third", page[1].Reason)

	page = ledger.History(p, 2, 10)
	assert.Len(t, page, 2)
	assert.Equal(t, "second", page[0].Reason)
	assert.Equal(t, "first", page[1].Reason)

	assert.Empty(t, ledger.History(p, 10, 5))
}
