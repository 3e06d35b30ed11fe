package feedback

import (
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/detection"
)

// LogSink writes every cue to a logger. It is the sink used when no other
// output is attached.
type LogSink struct {
	log   logrus.FieldLogger
	prefs Preferences
}

// NewLogSink returns a sink logging to log.
func NewLogSink(log logrus.FieldLogger, prefs Preferences) *LogSink {
	return &LogSink{log: log.WithField("component", "feedback"), prefs: prefs}
}

// OnDetectionStarted implements Sink.
func (s *LogSink) OnDetectionStarted() {
	s.emit(BuildCue(EventStarted, detection.Verdict{}, s.prefs))
}

// OnVerdict implements Sink.
func (s *LogSink) OnVerdict(v detection.Verdict) {
	s.emit(BuildCue(EventVerdict, v, s.prefs))
}

func (s *LogSink) emit(c Cue) {
	fields := logrus.Fields{"event": string(c.Event)}
	if c.Direction != "" {
		fields["direction"] = c.Direction
	}
	if c.Speech != nil {
		fields["volume"] = c.Speech.Volume
	}
	if len(c.Vibration) > 0 {
		fields["vibration"] = c.Vibration
	}
	s.log.WithFields(fields).Info(c.Message)
}
