package rep

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidThreshold is returned for a NaN or infinite threshold.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrInvalidDirection is returned for a direction other than Below or Above.
	ErrInvalidDirection = errors.New("invalid comparison direction")
	// ErrInvalidMinFrames is returned for a negative dwell frame count.
	ErrInvalidMinFrames = errors.New("invalid min frames")
)

// Direction is the side of the threshold on which a limb counts as contracted.
type Direction string

const (
	// Below treats signal < threshold as contracted (joint angles).
	Below Direction = "below"
	// Above treats signal > threshold as contracted (displacements).
	Above Direction = "above"
)

// Contracted reports whether signal is on the contracted side of threshold.
func (d Direction) Contracted(signal, threshold float64) bool {
	switch d {
	case Below:
		return signal < threshold
	case Above:
		return signal > threshold
	}
	return false
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Below || d == Above
}

// LimbState is the repetition state of one limb.
type LimbState struct {
	Contracted bool `json:"contracted"`
	Reps       uint `json:"reps"`
}

// CounterConfig configures a Counter.
type CounterConfig struct {
	Threshold float64
	Direction Direction

	// MinFrames is how many consecutive frames must be on the contracted
	// side before the limb counts as contracted. 0 and 1 both give the
	// plain single-frame trigger.
	MinFrames int
}

// Counter is an edge-triggered repetition counter for one limb.
// A repetition is counted on every Extended→Contracted transition.
// Counter is not safe for concurrent use.
type Counter struct {
	threshold float64
	direction Direction
	minFrames int
	streak    int
	state     LimbState
}

// NewCounter validates cfg and returns a Counter in the extended state with no reps.
func NewCounter(cfg CounterConfig) (*Counter, error) {
	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, cfg.Threshold)
	}
	if !cfg.Direction.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, cfg.Direction)
	}
	if cfg.MinFrames < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMinFrames, cfg.MinFrames)
	}

	minFrames := cfg.MinFrames
	if minFrames == 0 {
		minFrames = 1
	}

	return &Counter{
		threshold: cfg.Threshold,
		direction: cfg.Direction,
		minFrames: minFrames,
	}, nil
}

// Update feeds one frame's signal into the counter and returns the new state.
// Frames without a signal must not be passed in; skipping Update leaves the
// state untouched.
func (c *Counter) Update(signal float64) LimbState {
	current := c.direction.Contracted(signal, c.threshold)
	if current {
		c.streak++
	} else {
		c.streak = 0
	}
	current = current && c.streak >= c.minFrames

	if current && !c.state.Contracted {
		c.state.Reps++
	}
	c.state.Contracted = current

	return c.state
}

// State returns the current state without advancing it.
func (c *Counter) State() LimbState {
	return c.state
}

// Reset returns the counter to the extended state with no reps.
func (c *Counter) Reset() {
	c.streak = 0
	c.state = LimbState{}
}
