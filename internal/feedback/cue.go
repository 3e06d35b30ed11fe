package feedback

import (
	"fmt"
	"strings"

	"github.com/ironsheep/obstacle-mcp/internal/detection"
)

// Volume is the speech loudness preference.
type Volume string

const (
	VolumeHigh   Volume = "high"
	VolumeMedium Volume = "medium"
	VolumeLow    Volume = "low"
)

// ParseVolume accepts "high", "medium" or "low" in any case.
func ParseVolume(s string) (Volume, error) {
	switch v := Volume(strings.ToLower(strings.TrimSpace(s))); v {
	case VolumeHigh, VolumeMedium, VolumeLow:
		return v, nil
	default:
		return "", fmt.Errorf("unknown volume %q (want high, medium or low)", s)
	}
}

// Level maps the preference to a speech volume between 0 and 1. Unknown
// values are treated as high.
func (v Volume) Level() float64 {
	switch v {
	case VolumeMedium:
		return 0.6
	case VolumeLow:
		return 0.3
	default:
		return 1
	}
}

// Speech rendering parameters shared by every utterance.
const (
	SpeechRate  = 0.9
	SpeechPitch = 1.0
)

// StartedMessage is spoken when a session starts.
const StartedMessage = "Edge detection started"

// Preferences are the user's feedback settings.
type Preferences struct {
	VoiceEnabled     bool   `json:"voice_enabled"`
	VibrationEnabled bool   `json:"vibration_enabled"`
	Volume           Volume `json:"volume"`
}

// DefaultPreferences enables everything at high volume.
func DefaultPreferences() Preferences {
	return Preferences{VoiceEnabled: true, VibrationEnabled: true, Volume: VolumeHigh}
}

// Speech is an utterance for a text-to-speech engine.
type Speech struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// Cue is everything a client needs to render one event.
//
// Vibration alternates on and off durations in milliseconds, starting with
// on, in the form accepted by the browser vibration API.
type Cue struct {
	Event     Event   `json:"event"`
	Direction string  `json:"direction,omitempty"`
	Message   string  `json:"message"`
	Speech    *Speech `json:"speech,omitempty"`
	Vibration []int   `json:"vibration,omitempty"`
}

// BuildCue renders an event for the given preferences. Speech is omitted
// when voice is disabled and vibration when vibration is disabled; the
// message is always present. For EventStarted the verdict is ignored.
func BuildCue(event Event, v detection.Verdict, p Preferences) Cue {
	cue := Cue{Event: event}

	switch event {
	case EventStarted:
		cue.Message = StartedMessage
	default:
		cue.Direction = v.Kind.String()
		cue.Message = v.Message
		if p.VibrationEnabled {
			cue.Vibration = VibrationPattern(v.Haptic)
		}
	}

	if p.VoiceEnabled && cue.Message != "" {
		cue.Speech = &Speech{
			Text:   cue.Message,
			Rate:   SpeechRate,
			Pitch:  SpeechPitch,
			Volume: p.Volume.Level(),
		}
	}

	return cue
}

// VibrationPattern flattens pulses into alternating on/off durations. A
// zero pause after the last pulse is dropped.
func VibrationPattern(pulses []detection.Pulse) []int {
	if len(pulses) == 0 {
		return nil
	}
	out := make([]int, 0, 2*len(pulses))
	for _, p := range pulses {
		out = append(out, p.OnMs, p.OffMs)
	}
	if out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return out
}
