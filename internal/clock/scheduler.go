package clock

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CancelFunc stops a periodic schedule. It is safe to call more than once
// and from inside the scheduled function.
type CancelFunc func()

// Scheduler runs a function periodically.
type Scheduler interface {
	// SchedulePeriodic calls fn every interval, first after one interval has
	// elapsed, with the time of the tick. Calls for one schedule never
	// overlap.
	SchedulePeriodic(interval time.Duration, fn func(now time.Time)) CancelFunc
}

// TickerScheduler runs each schedule on its own goroutine driven by a
// Clock's ticker. A tick that arrives while fn is still running is dropped
// by the underlying ticker rather than queued.
type TickerScheduler struct {
	clock Clock
	log   logrus.FieldLogger
}

// NewTickerScheduler returns a scheduler over c. A nil c selects RealClock.
func NewTickerScheduler(c Clock, log logrus.FieldLogger) *TickerScheduler {
	if c == nil {
		c = RealClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TickerScheduler{clock: c, log: log}
}

// SchedulePeriodic implements Scheduler.
func (s *TickerScheduler) SchedulePeriodic(interval time.Duration, fn func(time.Time)) CancelFunc {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C():
				select {
				case <-done:
					return
				default:
				}
				s.run(fn, now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (s *TickerScheduler) run(fn func(time.Time), now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("scheduled task panicked")
		}
	}()
	fn(now)
}

// ManualScheduler is a Scheduler over a virtual clock that only moves when
// Advance is called. Due tasks run synchronously on the caller's goroutine.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

type manualTask struct {
	interval  time.Duration
	next      time.Time
	fn        func(time.Time)
	cancelled bool
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// SchedulePeriodic implements Scheduler.
func (s *ManualScheduler) SchedulePeriodic(interval time.Duration, fn func(time.Time)) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTask{interval: interval, next: s.now.Add(interval), fn: fn}
	s.tasks = append(s.tasks, t)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
		for i, task := range s.tasks {
			if task == t {
				s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
				break
			}
		}
	}
}

// Advance moves the clock forward by d, running every task that falls due
// in order of due time. The lock is released while a task runs, so tasks may
// cancel schedules and other goroutines may advance the clock concurrently.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)

	for {
		var due *manualTask
		for _, t := range s.tasks {
			if t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			break
		}

		at := due.next
		due.next = due.next.Add(due.interval)
		if at.After(s.now) {
			s.now = at
		}

		s.mu.Unlock()
		due.fn(at)
		s.mu.Lock()
	}

	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
}

// Pending returns the number of active schedules.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
