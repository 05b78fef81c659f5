package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/curlcount/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It plays back a scripted sequence of poses, one per Detect call.
type MockDetector struct {
	mu    sync.Mutex
	poses []*pose.Landmarks
	index int
	loop  bool
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose makes every Detect call return pose.
func (m *MockDetector) SetPose(lm *pose.Landmarks) {
	m.SetSequence([]*pose.Landmarks{lm}, true)
}

// SetSequence sets the poses returned by successive Detect calls.
// Nil entries simulate frames without a detection. After the last entry
// Detect returns nil unless loop is set.
func (m *MockDetector) SetSequence(poses []*pose.Landmarks, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
	m.index = 0
	m.loop = loop
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted pose or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.poses) == 0 {
		return nil, nil
	}
	if m.index >= len(m.poses) {
		if !m.loop {
			return nil, nil
		}
		m.index = 0
	}

	lm := m.poses[m.index]
	m.index++
	return lm, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
