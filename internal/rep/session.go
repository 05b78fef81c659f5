package rep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/curlcount/internal/pose"
)

var (
	// ErrInvalidMode is returned for an unknown counting mode.
	ErrInvalidMode = errors.New("invalid counting mode")
	// ErrInvalidLimb is returned for an unknown or missing limb.
	ErrInvalidLimb = errors.New("invalid limb")
)

// Mode selects the signal each limb is counted on.
type Mode string

const (
	// ModeAngle counts on the shoulder-elbow-wrist angle.
	ModeAngle Mode = "angle"
	// ModeDisplacement counts on the wrist's vertical offset from the shoulder.
	ModeDisplacement Mode = "displacement"
)

// Default thresholds.
const (
	DefaultAngleThreshold        = 160.0
	DefaultDisplacementThreshold = 0.03
)

// Direction returns the comparison direction used by the mode.
func (m Mode) Direction() Direction {
	switch m {
	case ModeAngle:
		return Below
	case ModeDisplacement:
		return Above
	}
	return ""
}

// Limb identifies a tracked arm.
type Limb string

const (
	LimbLeft  Limb = "left"
	LimbRight Limb = "right"
)

// Title returns the capitalized limb name used in overlay text.
func (l Limb) Title() string {
	switch l {
	case LimbLeft:
		return "Left"
	case LimbRight:
		return "Right"
	}
	return string(l)
}

func (l Limb) joints(lm *pose.Landmarks) pose.ArmJoints {
	if l == LimbRight {
		return lm.RightArm()
	}
	return lm.LeftArm()
}

// ParseLimbs parses "both", "left" or "right".
func ParseLimbs(s string) ([]Limb, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "both", "":
		return []Limb{LimbLeft, LimbRight}, nil
	case "left":
		return []Limb{LimbLeft}, nil
	case "right":
		return []Limb{LimbRight}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidLimb, s)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Mode                  Mode
	Limbs                 []Limb
	AngleThreshold        float64
	DisplacementThreshold float64
	MinFrames             int
}

// DefaultSessionConfig returns the configuration for mode with default
// thresholds: both arms for angle counting, the left arm for displacement.
func DefaultSessionConfig(mode Mode) SessionConfig {
	limbs := []Limb{LimbLeft, LimbRight}
	if mode == ModeDisplacement {
		limbs = []Limb{LimbLeft}
	}
	return SessionConfig{
		Mode:                  mode,
		Limbs:                 limbs,
		AngleThreshold:        DefaultAngleThreshold,
		DisplacementThreshold: DefaultDisplacementThreshold,
		MinFrames:             1,
	}
}

// Threshold returns the threshold that applies to the configured mode.
func (c SessionConfig) Threshold() float64 {
	if c.Mode == ModeDisplacement {
		return c.DisplacementThreshold
	}
	return c.AngleThreshold
}

// Event records one completed repetition.
type Event struct {
	Limb   Limb    `json:"limb"`
	Rep    uint    `json:"rep"`
	Signal float64 `json:"signal"`
}

// LimbSnapshot is the state of one limb after a frame.
type LimbSnapshot struct {
	Limb Limb `json:"limb"`
	LimbState
	// Signal is the value computed this frame; zero when nothing was detected.
	Signal float64 `json:"signal"`
}

// Snapshot is the result of processing one frame.
type Snapshot struct {
	Detected      bool           `json:"detected"`
	Limbs         []LimbSnapshot `json:"limbs"`
	AnyContracted bool           `json:"any_contracted"`
	Events        []Event        `json:"events,omitempty"`

	// Landmarks are the points the counts were derived from, passed
	// through unchanged for drawing.
	Landmarks *pose.Landmarks `json:"-"`
}

// Reps returns the rep count for limb, or 0 if it is not tracked.
func (s Snapshot) Reps(limb Limb) uint {
	for _, l := range s.Limbs {
		if l.Limb == limb {
			return l.Reps
		}
	}
	return 0
}

// Total returns the sum of reps across limbs.
func (s Snapshot) Total() uint {
	var total uint
	for _, l := range s.Limbs {
		total += l.Reps
	}
	return total
}

// Text renders the overlay line: per-limb counts while any limb is
// contracted, otherwise "Arm Curls: 0".
func (s Snapshot) Text() string {
	if !s.AnyContracted {
		return "Arm Curls: 0"
	}
	if len(s.Limbs) == 1 {
		return fmt.Sprintf("Arm Curls: %d", s.Limbs[0].Reps)
	}

	parts := make([]string, len(s.Limbs))
	for i, l := range s.Limbs {
		parts[i] = fmt.Sprintf("%s Arm Curls: %d", l.Limb.Title(), l.Reps)
	}
	return strings.Join(parts, " | ")
}

type limbCounter struct {
	limb    Limb
	counter *Counter
}

// Session drives one Counter per tracked limb. It holds no state of its
// own beyond those counters and is not safe for concurrent use.
type Session struct {
	mode  Mode
	limbs []limbCounter
}

// NewSession validates cfg and builds a counter per limb.
func NewSession(cfg SessionConfig) (*Session, error) {
	direction := cfg.Mode.Direction()
	if direction == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
	if len(cfg.Limbs) == 0 {
		return nil, fmt.Errorf("%w: no limbs configured", ErrInvalidLimb)
	}

	s := &Session{mode: cfg.Mode}
	seen := make(map[Limb]bool, len(cfg.Limbs))

	for _, limb := range cfg.Limbs {
		if limb != LimbLeft && limb != LimbRight {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLimb, limb)
		}
		if seen[limb] {
			continue
		}
		seen[limb] = true

		counter, err := NewCounter(CounterConfig{
			Threshold: cfg.Threshold(),
			Direction: direction,
			MinFrames: cfg.MinFrames,
		})
		if err != nil {
			return nil, fmt.Errorf("%s counter: %w", limb, err)
		}
		s.limbs = append(s.limbs, limbCounter{limb: limb, counter: counter})
	}

	return s, nil
}

// Mode returns the counting mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Limbs returns the tracked limbs in order.
func (s *Session) Limbs() []Limb {
	limbs := make([]Limb, len(s.limbs))
	for i, lc := range s.limbs {
		limbs[i] = lc.limb
	}
	return limbs
}

// signal computes the limb's signal for the session mode.
func (s *Session) signal(limb Limb, lm *pose.Landmarks) float64 {
	arm := limb.joints(lm)
	if s.mode == ModeDisplacement {
		return WristDisplacement(arm)
	}
	return ElbowAngle(arm)
}

// Process updates every limb from one frame's landmarks. A nil lm means
// nothing was detected: no counter is advanced and the current state is
// returned as is.
func (s *Session) Process(lm *pose.Landmarks) Snapshot {
	if lm == nil {
		return s.Snapshot()
	}

	snap := Snapshot{
		Detected:  true,
		Limbs:     make([]LimbSnapshot, 0, len(s.limbs)),
		Landmarks: lm,
	}

	for _, lc := range s.limbs {
		before := lc.counter.State()
		signal := s.signal(lc.limb, lm)
		state := lc.counter.Update(signal)

		if state.Reps > before.Reps {
			snap.Events = append(snap.Events, Event{Limb: lc.limb, Rep: state.Reps, Signal: signal})
		}
		snap.AnyContracted = snap.AnyContracted || state.Contracted
		snap.Limbs = append(snap.Limbs, LimbSnapshot{Limb: lc.limb, LimbState: state, Signal: signal})
	}

	return snap
}

// Snapshot returns the current state without processing a frame.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{Limbs: make([]LimbSnapshot, 0, len(s.limbs))}
	for _, lc := range s.limbs {
		state := lc.counter.State()
		snap.AnyContracted = snap.AnyContracted || state.Contracted
		snap.Limbs = append(snap.Limbs, LimbSnapshot{Limb: lc.limb, LimbState: state})
	}
	return snap
}

// Reset zeroes every counter.
func (s *Session) Reset() {
	for _, lc := range s.limbs {
		lc.counter.Reset()
	}
}
