package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/flowpulse/flowpulse/internal/util"
)

// Job is one scheduled batch process.
type Job interface {
	Run(ctx context.Context) error
}

// Schedule fires a job once per day at a fixed wall-clock UTC time.
type Schedule struct {
	Name   string
	Hour   int
	Minute int
	Job    Job
}

// Scheduler runs daily jobs at their configured UTC times. Runs of the same
// schedule never overlap; distinct schedules may run concurrently.
type Scheduler struct {
	schedules []Schedule
	runMu     sync.Mutex
	now       func() time.Time
}

// NewScheduler creates a scheduler for the given schedules.
func NewScheduler(schedules ...Schedule) *Scheduler {
	return &Scheduler{schedules: schedules, now: time.Now}
}

// Run blocks, firing each schedule at its next daily UTC occurrence, until
// ctx is cancelled. A job failure is logged; the schedule stays armed for
// the next day and retries from scratch.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, schedule := range s.schedules {
		wg.Add(1)
		go func(sched Schedule) {
			defer wg.Done()
			s.runSchedule(ctx, sched)
		}(schedule)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runSchedule(ctx context.Context, sched Schedule) {
	for {
		next := util.NextDailyFire(s.now(), sched.Hour, sched.Minute)
		util.LogInfof("%s scheduled for %s", sched.Name, next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.fire(ctx, sched)
	}
}

// fire runs one job, serialized against other fires of this scheduler so a
// long aggregation cannot overlap the leaderboard pass that reads its output.
func (s *Scheduler) fire(ctx context.Context, sched Schedule) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := s.now()
	if err := sched.Job.Run(ctx); err != nil {
		util.LogErrorf("%s failed after %v: %v", sched.Name, time.Since(start), err)
		return
	}
	util.LogInfof("%s completed in %v", sched.Name, time.Since(start))
}
