package scheduler

import (
	"context"
	"time"
)

// MinResolution is the smallest tick resolution Run accepts.
const MinResolution = time.Millisecond

// Func is a scheduled callback. ctx is the scheduler's context and now is
// the tick time.
type Func func(ctx context.Context, now time.Time)

// Schedule is an interval and a callback.
//
// A new Schedule is due immediately. After it fires at time t it is next
// due at t+interval; an interval of zero fires on every tick.
type Schedule struct {
	interval time.Duration
	fn       Func
	next     time.Time
}

// NewSchedule creates a schedule. Negative intervals are treated as zero.
func NewSchedule(interval time.Duration, fn Func) *Schedule {
	return &Schedule{
		interval: max(0, interval),
		fn:       fn,
	}
}

// Interval returns the schedule interval.
func (s *Schedule) Interval() time.Duration {
	return s.interval
}

// NextDue returns the time the schedule is next due. The zero time means
// it has never fired.
func (s *Schedule) NextDue() time.Time {
	return s.next
}

// Due reports whether the schedule should fire at now.
func (s *Schedule) Due(now time.Time) bool {
	return !now.Before(s.next)
}

// fire invokes the callback and advances the next due time.
func (s *Schedule) fire(ctx context.Context, now time.Time) {
	if s.fn != nil {
		s.fn(ctx, now)
	}
	s.next = now.Add(s.interval)
}

// Scheduler invokes due schedules on each tick.
//
// Thread Safety: a Scheduler must be driven from one goroutine.
type Scheduler struct {
	schedules []*Schedule
	now       func() time.Time
}

// New creates a scheduler for the given schedules.
func New(schedules ...*Schedule) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		now:       time.Now,
	}
}

// Add registers more schedules. Must not be called while Run is active.
func (s *Scheduler) Add(schedules ...*Schedule) {
	s.schedules = append(s.schedules, schedules...)
}

// Len returns the number of registered schedules.
func (s *Scheduler) Len() int {
	return len(s.schedules)
}

// Tick fires every schedule due at now, in registration order, and returns
// how many fired.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	fired := 0
	for _, sch := range s.schedules {
		if sch.Due(now) {
			sch.fire(ctx, now)
			fired++
		}
	}
	return fired
}

// Run ticks until ctx is cancelled, waiting resolution between ticks.
// Resolutions below MinResolution are raised to it.
func (s *Scheduler) Run(ctx context.Context, resolution time.Duration) {
	resolution = max(resolution, MinResolution)

	ticker := time.NewTicker(resolution)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		s.Tick(ctx, s.now())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
