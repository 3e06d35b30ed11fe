package detection

import "fmt"

// Kind is the directional outcome of one detection cycle.
type Kind int

const (
	NoObstacle Kind = iota
	ObstacleLeft
	ObstacleRight
	ObstacleCenter
)

var kindNames = map[Kind]string{
	NoObstacle:     "none",
	ObstacleLeft:   "left",
	ObstacleRight:  "right",
	ObstacleCenter: "center",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps "left", "right", "center" (or "ahead") and "none" to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	if s == "ahead" {
		return ObstacleCenter, nil
	}
	return NoObstacle, fmt.Errorf("unknown direction %q", s)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name accepted by ParseKind.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Pulse is one haptic segment: vibrate for OnMs, then pause for OffMs.
type Pulse struct {
	OnMs  int `json:"on_ms"`
	OffMs int `json:"off_ms"`
}

// Verdict is the classification of one frame together with the feedback to
// give for it. Verdicts are values and must not be mutated once emitted.
type Verdict struct {
	Kind    Kind    `json:"kind"`
	Message string  `json:"message"`
	Haptic  []Pulse `json:"haptic,omitempty"`
}

// Obstacle reports whether the verdict calls for feedback.
func (v Verdict) Obstacle() bool { return v.Kind != NoObstacle }

// VerdictFor returns the canned verdict for k. Each call returns a fresh
// haptic slice.
func VerdictFor(k Kind) Verdict {
	switch k {
	case ObstacleRight:
		return Verdict{
			Kind:    ObstacleRight,
			Message: "Don't go right",
			Haptic:  []Pulse{{OnMs: 200}},
		}
	case ObstacleLeft:
		return Verdict{
			Kind:    ObstacleLeft,
			Message: "Don't go left",
			Haptic:  []Pulse{{OnMs: 200, OffMs: 100}, {OnMs: 200}},
		}
	case ObstacleCenter:
		return Verdict{
			Kind:    ObstacleCenter,
			Message: "Obstacle detected ahead",
			Haptic:  []Pulse{{OnMs: 100, OffMs: 50}, {OnMs: 100}},
		}
	default:
		return Verdict{Kind: NoObstacle}
	}
}

// Classify counts regions left and right of the frame's centre line and
// picks the verdict. A region is on the left when its CenterX is strictly
// less than frameWidth/2; anything on the line counts as right. Equal
// counts, including a single region on each side, produce ObstacleCenter.
func Classify(regions []Region, frameWidth int) Verdict {
	if len(regions) == 0 {
		return VerdictFor(NoObstacle)
	}

	center := float64(frameWidth) / 2
	left, right := 0, 0
	for _, r := range regions {
		if r.CenterX < center {
			left++
		} else {
			right++
		}
	}

	switch {
	case right > left:
		return VerdictFor(ObstacleRight)
	case left > right:
		return VerdictFor(ObstacleLeft)
	default:
		return VerdictFor(ObstacleCenter)
	}
}

// Detect runs the full pipeline on one frame.
func Detect(e *Extractor, m EdgeMap) ([]Region, Verdict) {
	regions := e.Extract(m)
	return regions, Classify(regions, m.Width)
}
