package scheduler

import (
	"fmt"
	"math/rand"
	"time"
)

// IntervalSchedule schedules a job to run at a fixed interval, with an
// optional jitter that spreads runs out so replicas sharing a config do
// not rebuild the same data at the same instant.
type IntervalSchedule struct {
	Interval time.Duration
	Jitter   time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// WithJitter adds up to jitter of random delay to every scheduled run.
func (s *IntervalSchedule) WithJitter(jitter time.Duration) *IntervalSchedule {
	if jitter < 0 {
		jitter = 0
	}
	s.Jitter = jitter
	return s
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.Interval)
	if s.Jitter > 0 {
		next = next.Add(time.Duration(rand.Int63n(int64(s.Jitter))))
	}
	return next
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	if s.Jitter > 0 {
		return fmt.Sprintf("@every %s ~%s", s.Interval.String(), s.Jitter.String())
	}
	return fmt.Sprintf("@every %s", s.Interval.String())
}
