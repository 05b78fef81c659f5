// Package detector runs pose estimation on camera frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/curlcount/internal/pose"
)

// Detector defines the interface for pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected pose.
	// Returns nil landmarks if no person is detected.
	Detect(frame *gocv.Mat) (*pose.Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinDetectionConf is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
	}
}
