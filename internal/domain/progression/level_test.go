package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

func newTestProgression(t *testing.T) *UserProgression {
	t.Helper()
	p, err := NewUserProgression(
		shared.UserID("3f2c8a1e-5b4d-4e6f-9a0b-1c2d3e4f5a6b"),
		shared.OrgID("reef-academy"),
	)
	assert.NoError(t, err)
	return p
}

func TestLevelFor_TableBoundaries(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())

	assert.Equal(t, Level(1), calc.LevelFor(0))
	assert.Equal(t, Level(1), calc.LevelFor(99))
	assert.Equal(t, Level(2), calc.LevelFor(100))
	assert.Equal(t, Level(2), calc.LevelFor(299))
	assert.Equal(t, Level(3), calc.LevelFor(300))
	assert.Equal(t, Level(13), calc.LevelFor(10000))
}

func TestLevelFor_BeyondTableHoldsFinalLevel(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())

	max := DefaultCatalog().MaxLevel()
	assert.Equal(t, max, calc.LevelFor(10001))
	assert.Equal(t, max, calc.LevelFor(1_000_000))
}

func TestPointsToNext(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())

	missing, ok := calc.PointsToNext(40)
	assert.True(t, ok)
	assert.Equal(t, Points(60), missing)

	_, ok = calc.PointsToNext(10000)
	assert.False(t, ok)
}

func TestCheckLevelUp_PromotesOnThreshold(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())
	p := newTestProgression(t)

	p.TotalPoints = 100
	old, current, leveledUp := calc.CheckLevelUp(p)

	assert.True(t, leveledUp)
	assert.Equal(t, Level(1), old)
	assert.Equal(t, Level(2), current)
	assert.Equal(t, Level(2), p.CurrentLevel)
}

func TestCheckLevelUp_SkipsIntermediateLevels(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())
	p := newTestProgression(t)

	// A single large grant can jump over several thresholds at once.
	p.TotalPoints = 650
	_, current, leveledUp := calc.CheckLevelUp(p)

	assert.True(t, leveledUp)
	assert.Equal(t, Level(4), current)
}

func TestCheckLevelUp_NeverDemotes(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())
	p := newTestProgression(t)

	p.TotalPoints = 300
	calc.CheckLevelUp(p)
	assert.Equal(t, Level(3), p.CurrentLevel)

	// An admin correction pulls points back below the threshold.
	p.TotalPoints = 50
	old, current, leveledUp := calc.CheckLevelUp(p)

	assert.False(t, leveledUp)
	assert.Equal(t, Level(3), old)
	assert.Equal(t, Level(3), current)
	assert.Equal(t, Level(3), p.CurrentLevel)
}

func TestCheckLevelUp_Idempotent(t *testing.T) {
	calc := NewLevelCalculator(DefaultCatalog())
	p := newTestProgression(t)

	p.TotalPoints = 100
	_, _, first := calc.CheckLevelUp(p)
	_, _, second := calc.CheckLevelUp(p)

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, Level(2), p.CurrentLevel)
}
