// Package feedback turns detection verdicts into cues for the user: spoken
// messages, vibration patterns and pushes to connected displays.
package feedback

import "github.com/ironsheep/obstacle-mcp/internal/detection"

// Sink receives the output of a detection session.
//
// Implementations are called from the detection loop's goroutine and should
// return promptly: Controller.Stop waits for a call in progress, so a slow
// sink delays Stop by as long as it blocks. OnVerdict is only called for
// verdicts that report an obstacle. A sink must not stop the controller from
// inside either method.
type Sink interface {
	OnDetectionStarted()
	OnVerdict(v detection.Verdict)
}

// Event names the kind of cue being rendered.
type Event string

const (
	EventStarted Event = "started"
	EventVerdict Event = "verdict"
)

// Discard is a Sink that ignores everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) OnDetectionStarted()         {}
func (discard) OnVerdict(detection.Verdict) {}
