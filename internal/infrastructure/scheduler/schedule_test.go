package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(10*time.Minute), s.Next(base))
	assert.Equal(t, "@every 10m0s", s.String())
}

func TestIntervalSchedule_JitterStaysInBounds(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute).WithJitter(30 * time.Second)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		next := s.Next(base)
		assert.False(t, next.Before(base.Add(10*time.Minute)))
		assert.True(t, next.Before(base.Add(10*time.Minute+30*time.Second)))
	}
	assert.Equal(t, "@every 10m0s ~30s", s.String())

	// Negative jitter is clamped off.
	flat := NewIntervalSchedule(time.Minute).WithJitter(-time.Second)
	assert.Equal(t, base.Add(time.Minute), flat.Next(base))
}

func TestParseCronExpression_EveryTenMinutes(t *testing.T) {
	ce, err := ParseCronExpression("*/10 * * * *")
	assert.NoError(t, err)

	next := ce.Next(time.Date(2026, 3, 10, 12, 3, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC), next)
}

func TestParseCronExpression_DailyAtFour(t *testing.T) {
	ce, err := ParseCronExpression("0 4 * * *")
	assert.NoError(t, err)

	// After 04:00 the next run is tomorrow.
	next := ce.Next(time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC), next)
}

func TestParseCronExpression_CrossesMinuteBoundary(t *testing.T) {
	ce := MustParseCronExpression(EveryHour)

	next := ce.Next(time.Date(2026, 3, 10, 12, 0, 30, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC), next)
}

func TestParseCronExpression_Invalid(t *testing.T) {
	cases := []string{
		"* * * *",       // too few fields
		"61 * * * *",    // minute out of range
		"* 25 * * *",    // hour out of range
		"* * 0 * *",     // day out of range
		"bogus * * * *", // not a number
		"*/0 * * * *",   // zero step
	}

	for _, expr := range cases {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, "expected %q to be rejected", expr)
	}
}
