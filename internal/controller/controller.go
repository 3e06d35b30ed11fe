// Package controller runs the obstacle detector periodically against a frame
// source and forwards verdicts to a feedback sink.
//
// A Controller is either idle or running one session. Start creates the
// session and schedules a tick every interval; Stop cancels the schedule and
// ends the session. Each tick reads the session's sensitivity once, takes the
// current frame and runs the edge map, region and classification stages.
// Verdicts that report an obstacle are forwarded to the sink.
//
// Ticks never overlap. A tick that fires while the previous one is still
// running is skipped rather than queued. A tick still in flight when Stop is
// called has its verdict discarded.
package controller

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/clock"
	"github.com/ironsheep/obstacle-mcp/internal/detection"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
	"github.com/ironsheep/obstacle-mcp/internal/frame"
)

// DefaultIntervalMs is the tick interval used when Options.IntervalMs is 0.
const DefaultIntervalMs = 1000

// Options configures a session.
type Options struct {
	// IntervalMs is the tick period. Zero selects DefaultIntervalMs.
	IntervalMs int `json:"interval_ms" validate:"omitempty,gte=50,lte=60000"`

	// Sensitivity is the initial edge sensitivity, 0 to 100.
	Sensitivity int `json:"sensitivity" validate:"gte=0,lte=100"`
}

func (o Options) interval() time.Duration {
	if o.IntervalMs == 0 {
		return DefaultIntervalMs * time.Millisecond
	}
	return time.Duration(o.IntervalMs) * time.Millisecond
}

// Stats counts what happened to the ticks of a session.
type Stats struct {
	Cycles         uint64 `json:"cycles"`
	SkippedNoFrame uint64 `json:"skipped_no_frame"`
	SkippedBusy    uint64 `json:"skipped_busy"`
	Clear          uint64 `json:"clear"`
	Emitted        uint64 `json:"emitted"`
	Discarded      uint64 `json:"discarded"`
	Throttled      uint64 `json:"throttled"`
}

// Status is a snapshot of the current session, or of the most recent one
// when idle. A controller that never started reports only Active=false.
type Status struct {
	Active        bool               `json:"active"`
	SessionID     string             `json:"session_id,omitempty"`
	IntervalMs    int                `json:"interval_ms,omitempty"`
	Sensitivity   int                `json:"sensitivity"`
	Threshold     int                `json:"threshold"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	LastVerdict   *detection.Verdict `json:"last_verdict,omitempty"`
	LastVerdictAt *time.Time         `json:"last_verdict_at,omitempty"`
	Stats         Stats              `json:"stats"`
}

// Controller owns the detection session. It is safe for concurrent use.
type Controller struct {
	source    frame.Source
	sink      feedback.Sink
	scheduler clock.Scheduler
	log       logrus.FieldLogger
	validate  *validator.Validate

	mu       sync.Mutex
	current  *session
	previous *session

	// busy is held by the tick currently running the pipeline, whichever
	// session scheduled it. extractor is only touched while busy is held.
	busy      atomic.Bool
	extractor detection.Extractor
}

// New returns an idle controller. A nil scheduler selects a TickerScheduler
// on the real clock; a nil sink discards feedback.
func New(source frame.Source, sink feedback.Sink, scheduler clock.Scheduler, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if scheduler == nil {
		scheduler = clock.NewTickerScheduler(clock.RealClock{}, log)
	}
	if sink == nil {
		sink = feedback.Discard
	}
	return &Controller{
		source:    source,
		sink:      sink,
		scheduler: scheduler,
		log:       log.WithField("component", "controller"),
		validate:  validator.New(),
	}
}

// Start begins a session. It returns *AlreadyActiveError if one is running
// and an error wrapping ErrInvalidOptions if opts fail validation.
func (c *Controller) Start(opts Options) error {
	if err := c.validate.Struct(opts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	c.mu.Lock()
	if c.current != nil {
		id := c.current.id
		c.mu.Unlock()
		return &AlreadyActiveError{SessionID: id}
	}

	s := newSession(opts.interval(), opts.Sensitivity, time.Now())

	// Held until the started cue is out: verdicts of this session wait
	// behind it, and a concurrent Stop returns only after it.
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.cancel = c.scheduler.SchedulePeriodic(s.interval, func(now time.Time) {
		c.tick(s, now)
	})
	c.current = s
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"session":     s.id,
		"interval_ms": int(s.interval / time.Millisecond),
		"sensitivity": opts.Sensitivity,
	}).Info("detection started")

	if s.cancelled.Load() {
		return nil
	}
	c.sink.OnDetectionStarted()
	return nil
}

// Stop ends the running session. It is a no-op when idle. When Stop returns
// no further verdict from the stopped session reaches the sink.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.current
	if s == nil {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.previous = s
	c.mu.Unlock()

	s.cancelled.Store(true)
	s.cancel()

	// Wait out a tick that is forwarding right now.
	s.emitMu.Lock()
	s.emitMu.Unlock()

	c.log.WithFields(logrus.Fields{
		"session": s.id,
		"cycles":  s.stats.cycles.Load(),
		"emitted": s.stats.emitted.Load(),
	}).Info("detection stopped")
}

// IsActive reports whether a session is running.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// SetSensitivity changes the running session's sensitivity. The new value
// applies from the next tick.
func (c *Controller) SetSensitivity(sensitivity int) error {
	if sensitivity < detection.MinSensitivity || sensitivity > detection.MaxSensitivity {
		return fmt.Errorf("%w: sensitivity %d outside [%d, %d]",
			ErrInvalidOptions, sensitivity, detection.MinSensitivity, detection.MaxSensitivity)
	}

	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return ErrNotActive
	}

	s.sensitivity.Store(int32(sensitivity))
	c.log.WithFields(logrus.Fields{
		"session":     s.id,
		"sensitivity": sensitivity,
	}).Debug("sensitivity updated")
	return nil
}

// Status returns a snapshot of the running or most recent session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	cur, prev := c.current, c.previous
	c.mu.Unlock()

	switch {
	case cur != nil:
		return cur.status(true)
	case prev != nil:
		return prev.status(false)
	default:
		return Status{}
	}
}

// tick runs one detection cycle for s.
func (c *Controller) tick(s *session, now time.Time) {
	if s.cancelled.Load() {
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		s.stats.skippedBusy.Add(1)
		c.log.WithField("session", s.id).Debug("previous cycle still running, skipping tick")
		return
	}
	defer c.busy.Store(false)
	defer c.recoverTick(s)

	s.stats.cycles.Add(1)
	sensitivity := int(s.sensitivity.Load())

	f, ok := c.source.CurrentFrame()
	if !ok || f == nil {
		s.stats.skippedNoFrame.Add(1)
		return
	}

	edges := detection.BuildEdgeMap(f, sensitivity)
	regions, verdict := detection.Detect(&c.extractor, edges)

	entry := c.log.WithFields(logrus.Fields{
		"session": s.id,
		"frame":   f.Sequence,
		"edges":   edges.Count(),
		"regions": len(regions),
		"verdict": verdict.Kind.String(),
	})

	if !verdict.Obstacle() {
		s.stats.clear.Add(1)
		entry.Debug("cycle complete, path clear")
		return
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.cancelled.Load() {
		s.stats.discarded.Add(1)
		entry.Debug("session stopped during cycle, verdict discarded")
		return
	}
	if !s.limiter.AllowN(now, 1) {
		s.stats.throttled.Add(1)
		entry.Debug("verdict rate exceeded, verdict dropped")
		return
	}

	s.record(verdict, now)
	s.stats.emitted.Add(1)
	entry.Debug("verdict emitted")
	c.sink.OnVerdict(verdict)
}

func (c *Controller) recoverTick(s *session) {
	if r := recover(); r != nil {
		c.log.WithFields(logrus.Fields{
			"session": s.id,
			"panic":   r,
		}).Error("detection cycle panicked")
	}
}
