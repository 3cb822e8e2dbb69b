package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartAndEndOfDayUTC(t *testing.T) {
	// 23:30 in UTC+5 is 18:30 UTC, still the same UTC day.
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), StartOfDayUTC(local))
	assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 999999999, time.UTC), EndOfDayUTC(local))
}

func TestStartOfWeekUTC(t *testing.T) {
	// 2026-03-12 is a Thursday; the week starts Monday 2026-03-09.
	thursday := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StartOfWeekUTC(thursday))

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StartOfWeekUTC(sunday))
}

func TestIsSameDay_AcrossTimezones(t *testing.T) {
	// 01:00 UTC+5 on March 11 is 20:00 UTC on March 10.
	loc := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2026, 3, 11, 1, 0, 0, 0, loc)
	utc := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(late, utc))
}

func TestIsConsecutiveDay(t *testing.T) {
	d1 := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(d1, d2))
	assert.False(t, IsConsecutiveDay(d2, d1))
	assert.False(t, IsConsecutiveDay(d1, d1))
}

func TestDaysBetween(t *testing.T) {
	d1 := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 13, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysBetween(d1, d2))
	assert.Equal(t, 3, DaysBetween(d2, d1))
	assert.Equal(t, 0, DaysBetween(d1, d1))
}

func TestFormatAndParseDate(t *testing.T) {
	parsed, err := ParseDateUTC("2026-03-10")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), parsed)
	assert.Equal(t, "2026-03-10", FormatDateStr(parsed))

	_, err = ParseDateUTC("10.03.2026")
	assert.Error(t, err)
}

func TestFormatRelative(t *testing.T) {
	now := Now()

	assert.Equal(t, "just now", FormatRelative(now.Add(-30*time.Second)))
	assert.Equal(t, "5m ago", FormatRelative(now.Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", FormatRelative(now.Add(-3*time.Hour)))
	assert.Equal(t, "yesterday", FormatRelative(now.Add(-25*time.Hour)))
	assert.Equal(t, "3d ago", FormatRelative(now.Add(-3*24*time.Hour)))
	assert.Equal(t, "in 2h", FormatRelative(now.Add(2*time.Hour+time.Minute)))
}
