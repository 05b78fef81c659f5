package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// MotionBlurSize is the Gaussian kernel used to smooth sensor noise
	// before frames are compared.
	MotionBlurSize = 21
	// MotionPixelDelta is the grey-level change that marks a pixel as moved.
	MotionPixelDelta = 25
)

// MotionDetector compares each frame with the previous one and reports
// whether enough of the picture changed to be worth running pose detection.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels (0-100) that must change between frames to count as motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous frame and returns whether it moved
// and the percentage of changed pixels. The first frame only sets the
// baseline and never counts as motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(MotionBlurSize, MotionBlurSize), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	moved := gocv.NewMat()
	defer moved.Close()
	gocv.Threshold(diff, &moved, MotionPixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(moved)) / float64(moved.Rows()*moved.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline so the next frame starts a fresh comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the stored baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}
