// Package scheduler runs periodic tasks cooperatively on one goroutine.
//
// Every iteration services the GUI pump first, then fires each task whose
// period has elapsed at most once, then sleeps for LoopDelay. Elapsed time is
// measured on a wrapping uint32 millisecond counter with unsigned subtraction,
// so the loop survives counter overflow.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/deskclock/internal/clock"
	"github.com/kjstillabower/deskclock/internal/observability"
)

// Default task periods in milliseconds.
const (
	ClockPeriod   uint32 = 1000
	RotatePeriod  uint32 = 7000
	WeatherPeriod uint32 = 600000
	NetworkPeriod uint32 = 2000

	// LoopDelay is short enough that ~100 ms animations stay smooth.
	LoopDelay = 5 * time.Millisecond

	// IconSettle lets the outdoor background commit before the icon flips.
	IconSettle = 30 * time.Millisecond
)

// ShouldFire reports whether period has elapsed since last. Correct across
// counter wraparound.
func ShouldFire(last, now, period uint32) bool {
	return now-last >= period
}

// Task is a periodic unit of work. Run must return within a short bounded
// time; errors are logged and never stop the loop.
type Task struct {
	Name   string
	Period uint32
	Run    func(ctx context.Context) error
}

type entry struct {
	Task
	lastFired uint32
	forced    bool
	runs      uint64
	failures  uint64
}

// Status is a point-in-time view of the scheduler for the status server.
type Status struct {
	Iterations uint64       `json:"iterations"`
	Tasks      []TaskStatus `json:"tasks"`
}

// TaskStatus reports one task.
type TaskStatus struct {
	Name      string `json:"name"`
	PeriodMs  uint32 `json:"periodMs"`
	LastFired uint32 `json:"lastFiredMs"`
	Runs      uint64 `json:"runs"`
	Failures  uint64 `json:"failures"`
}

// Scheduler owns all schedule state. Add, Trigger and Tick must be called from
// the loop goroutine; Status is safe from anywhere.
type Scheduler struct {
	counter    clock.Counter
	pump       func(now uint32)
	logger     *zap.Logger
	delay      time.Duration
	tasks      []*entry
	iterations uint64
	status     atomic.Pointer[Status]
}

// New creates a scheduler. pump runs every iteration before any task and may
// be nil.
func New(counter clock.Counter, pump func(now uint32), logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{counter: counter, pump: pump, logger: logger, delay: LoopDelay}
	s.status.Store(&Status{})
	return s
}

// SetLoopDelay overrides LoopDelay.
func (s *Scheduler) SetLoopDelay(d time.Duration) {
	s.delay = d
}

// Add registers a task. Its first fire happens one period after now. Tasks
// fire in the order they were added.
func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, &entry{Task: t, lastFired: s.counter.Millis()})
	s.publish()
}

// Trigger makes the named task fire on the next evaluation regardless of its
// period. It reports whether the task exists.
func (s *Scheduler) Trigger(name string) bool {
	for _, e := range s.tasks {
		if e.Name == name {
			e.forced = true
			return true
		}
	}
	return false
}

// Tick runs one iteration: pump, then every due task once.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.pump != nil {
		s.pump(s.counter.Millis())
	}
	for _, e := range s.tasks {
		now := s.counter.Millis()
		if !e.forced && !ShouldFire(e.lastFired, now, e.Period) {
			continue
		}
		e.forced = false
		e.lastFired = now
		s.run(ctx, e)
	}
	s.iterations++
	s.publish()
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	start := time.Now()
	err := safeRun(ctx, e.Run)
	e.runs++
	if err != nil {
		e.failures++
		s.logger.Warn("task failed", zap.String("task", e.Name), zap.Error(err))
	}
	observability.RecordTask(e.Name, time.Since(start), err != nil)
}

func safeRun(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx)
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	for {
		s.Tick(ctx)
		timer.Reset(s.delay)
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", zap.Uint64("iterations", s.iterations))
			return
		case <-timer.C:
		}
	}
}

// Status returns the last published snapshot.
func (s *Scheduler) Status() Status {
	return *s.status.Load()
}

func (s *Scheduler) publish() {
	st := &Status{Iterations: s.iterations, Tasks: make([]TaskStatus, len(s.tasks))}
	for i, e := range s.tasks {
		st.Tasks[i] = TaskStatus{
			Name:      e.Name,
			PeriodMs:  e.Period,
			LastFired: e.lastFired,
			Runs:      e.runs,
			Failures:  e.failures,
		}
	}
	s.status.Store(st)
}
