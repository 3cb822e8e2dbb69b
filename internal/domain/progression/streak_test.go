package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreak_FirstActivityStartsAtOne(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	day0 := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	res, err := tracker.Touch(p, day0)

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.Extended)
	assert.False(t, res.Broken)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, "2026-03-10", p.LastActiveDate.String())
}

func TestStreak_SameDayIsIdempotent(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	day0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := tracker.Touch(p, day0)
	assert.NoError(t, err)

	later := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	res, err := tracker.Touch(p, later)

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.False(t, res.Extended)
	assert.Equal(t, 1, p.Streak)
}

func TestStreak_ConsecutiveDayIncrements(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	day0 := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	day1 := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)

	_, err := tracker.Touch(p, day0)
	assert.NoError(t, err)

	// Two minutes apart on the clock, but different UTC calendar days.
	res, err := tracker.Touch(p, day1)

	assert.NoError(t, err)
	assert.Equal(t, 2, res.Streak)
	assert.True(t, res.Extended)
}

func TestStreak_GapResetsToOne(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	day0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	day1 := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)

	_, err := tracker.Touch(p, day0)
	assert.NoError(t, err)
	_, err = tracker.Touch(p, day1)
	assert.NoError(t, err)

	res, err := tracker.Touch(p, day3)

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.Broken)
	assert.Equal(t, 1, res.DaysMissed)
	assert.Equal(t, 2, res.PreviousStreak)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, "2026-03-13", p.LastActiveDate.String())
}

func TestStreak_BackdatedActivityRejected(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	day1 := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	day0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := tracker.Touch(p, day1)
	assert.NoError(t, err)

	_, err = tracker.Touch(p, day0)

	assert.ErrorIs(t, err, ErrClockSkew)
	// State must be untouched after a rejected touch.
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, "2026-03-11", p.LastActiveDate.String())
}

func TestStreak_MilestoneDetected(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var last StreakResult
	for i := 0; i < 7; i++ {
		res, err := tracker.Touch(p, start.AddDate(0, 0, i))
		assert.NoError(t, err)
		last = res
	}

	assert.Equal(t, 7, last.Streak)
	assert.Equal(t, 7, last.MilestoneReached)
	assert.Equal(t, Points(70), MilestoneBonus(last.MilestoneReached))
}

func TestStreak_StatTracksLongestRun(t *testing.T) {
	tracker := NewStreakTracker(DefaultCatalog())
	p := newTestProgression(t)

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := tracker.Touch(p, start.AddDate(0, 0, i))
		assert.NoError(t, err)
	}

	// Break the streak; the stat keeps the best run for badge evaluation.
	_, err := tracker.Touch(p, start.AddDate(0, 0, 10))
	assert.NoError(t, err)

	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, 5, p.Stat(StatStreakDays))
}
