package feedback

import (
	"sync"

	"github.com/ironsheep/obstacle-mcp/internal/detection"
)

// Recorder is a Sink that keeps everything it receives. It is meant for
// tests and for inspecting a session after the fact.
type Recorder struct {
	mu       sync.Mutex
	started  int
	verdicts []detection.Verdict
	notify   chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 64)}
}

// OnDetectionStarted implements Sink.
func (r *Recorder) OnDetectionStarted() {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
	r.signal()
}

// OnVerdict implements Sink.
func (r *Recorder) OnVerdict(v detection.Verdict) {
	r.mu.Lock()
	r.verdicts = append(r.verdicts, v)
	r.mu.Unlock()
	r.signal()
}

func (r *Recorder) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Started returns how many sessions have started.
func (r *Recorder) Started() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Verdicts returns a copy of the received verdicts in arrival order.
func (r *Recorder) Verdicts() []detection.Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]detection.Verdict, len(r.verdicts))
	copy(out, r.verdicts)
	return out
}

// Events returns a channel that receives a value after each call, dropping
// signals when nobody is listening.
func (r *Recorder) Events() <-chan struct{} {
	return r.notify
}

// Reset forgets everything received so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = 0
	r.verdicts = nil
}
