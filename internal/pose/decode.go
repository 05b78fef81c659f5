package pose

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTooFewPoints is returned when a recorded pose does not reach the arm landmarks.
var ErrTooFewPoints = errors.New("pose has too few landmarks")

// jsonPose is the wire form of one pose, shared by the pose service replies
// and landmark recordings.
type jsonPose struct {
	Points []Point `json:"points"`
}

type jsonFrame struct {
	Pose *jsonPose `json:"pose"`
}

func (p *jsonPose) toLandmarks() (*Landmarks, error) {
	if p == nil || len(p.Points) == 0 {
		return nil, nil
	}
	// Arm landmarks end at RightWrist; fewer points cannot be counted.
	if len(p.Points) <= RightWrist {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(p.Points))
	}

	lm := &Landmarks{}
	for i := 0; i < NumLandmarks && i < len(p.Points); i++ {
		lm.Points[i] = p.Points[i]
	}
	return lm, nil
}

// DecodeFrame parses one JSON frame of the form {"pose": {"points": [...]}}.
// A null or empty pose decodes to nil landmarks, meaning no detection.
func DecodeFrame(line []byte) (*Landmarks, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || bytes.Equal(line, []byte("null")) {
		return nil, nil
	}

	var frame jsonFrame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	return frame.Pose.toLandmarks()
}

// EncodeFrame renders landmarks in the same line format DecodeFrame reads.
func EncodeFrame(lm *Landmarks) ([]byte, error) {
	var frame jsonFrame
	if lm != nil {
		frame.Pose = &jsonPose{Points: lm.Points[:]}
	}
	return json.Marshal(frame)
}

// FrameReader reads a landmark recording: one JSON frame per line, in capture order.
type FrameReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &FrameReader{scanner: s}
}

// Next returns the next frame's landmarks (nil when the frame had no
// detection). It returns io.EOF after the last frame.
func (r *FrameReader) Next() (*Landmarks, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	r.line++

	lm, err := DecodeFrame(r.scanner.Bytes())
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line, err)
	}
	return lm, nil
}

// Line returns the number of lines read so far.
func (r *FrameReader) Line() int {
	return r.line
}
