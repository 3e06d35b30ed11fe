package feedback

import "github.com/ironsheep/obstacle-mcp/internal/detection"

type multiSink []Sink

// Multi returns a Sink that forwards to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiSink) OnDetectionStarted() {
	for _, s := range m {
		s.OnDetectionStarted()
	}
}

func (m multiSink) OnVerdict(v detection.Verdict) {
	for _, s := range m {
		s.OnVerdict(v)
	}
}
