package controller

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ironsheep/obstacle-mcp/internal/clock"
	"github.com/ironsheep/obstacle-mcp/internal/detection"
)

// session is the state of one start/stop cycle. Only the controller creates
// and ends sessions; ticks hold a pointer to the session they were scheduled
// for so that a late tick cannot act on a newer session.
type session struct {
	id        string
	interval  time.Duration
	startedAt time.Time

	sensitivity atomic.Int32
	cancelled   atomic.Bool
	cancel      clock.CancelFunc

	// limiter caps forwarded verdicts at one per interval even if the
	// scheduler fires early.
	limiter *rate.Limiter

	// emitMu serialises forwarding with Stop, so no verdict reaches the sink
	// once Stop has returned.
	emitMu sync.Mutex

	mu     sync.Mutex
	last   *detection.Verdict
	lastAt time.Time

	stats counters
}

type counters struct {
	cycles         atomic.Uint64
	skippedNoFrame atomic.Uint64
	skippedBusy    atomic.Uint64
	clear          atomic.Uint64
	emitted        atomic.Uint64
	discarded      atomic.Uint64
	throttled      atomic.Uint64
}

func newSession(interval time.Duration, sensitivity int, now time.Time) *session {
	s := &session{
		id:        uuid.NewString(),
		interval:  interval,
		startedAt: now,
		limiter:   rate.NewLimiter(rate.Every(interval*9/10), 1),
	}
	s.sensitivity.Store(int32(sensitivity))
	return s
}

func (s *session) record(v detection.Verdict, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &v
	s.lastAt = at
}

func (s *session) status(active bool) Status {
	started := s.startedAt
	sensitivity := int(s.sensitivity.Load())
	st := Status{
		Active:      active,
		SessionID:   s.id,
		IntervalMs:  int(s.interval / time.Millisecond),
		Sensitivity: sensitivity,
		Threshold:   detection.Threshold(sensitivity),
		StartedAt:   &started,
		Stats: Stats{
			Cycles:         s.stats.cycles.Load(),
			SkippedNoFrame: s.stats.skippedNoFrame.Load(),
			SkippedBusy:    s.stats.skippedBusy.Load(),
			Clear:          s.stats.clear.Load(),
			Emitted:        s.stats.emitted.Load(),
			Discarded:      s.stats.discarded.Load(),
			Throttled:      s.stats.throttled.Load(),
		},
	}

	s.mu.Lock()
	if s.last != nil {
		v := *s.last
		st.LastVerdict = &v
		at := s.lastAt
		st.LastVerdictAt = &at
	}
	s.mu.Unlock()

	return st
}
