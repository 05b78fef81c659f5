// Package pose holds body landmark types shared by detection and counting.
// It has no dependency on OpenCV.
package pose

// Pose landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Point is a joint position in normalized image coordinates.
// X and Y are in [0,1] relative to frame width and height; Z and
// Visibility are carried through from the model but not used for counting.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Landmarks holds the 33 body landmarks detected in a single frame.
type Landmarks struct {
	Points [NumLandmarks]Point `json:"points"`
}

// ArmJoints is the shoulder, elbow and wrist of one arm.
type ArmJoints struct {
	Shoulder Point
	Elbow    Point
	Wrist    Point
}

// LeftArm returns the joints of the left arm.
func (p *Landmarks) LeftArm() ArmJoints {
	return ArmJoints{
		Shoulder: p.Points[LeftShoulder],
		Elbow:    p.Points[LeftElbow],
		Wrist:    p.Points[LeftWrist],
	}
}

// RightArm returns the joints of the right arm.
func (p *Landmarks) RightArm() ArmJoints {
	return ArmJoints{
		Shoulder: p.Points[RightShoulder],
		Elbow:    p.Points[RightElbow],
		Wrist:    p.Points[RightWrist],
	}
}

// ArmSegments lists the landmark index pairs drawn as the arm skeleton.
var ArmSegments = [][2]int{
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
}

// ArmPoints lists the landmark indices drawn as joint markers.
var ArmPoints = []int{
	LeftShoulder, LeftElbow, LeftWrist,
	RightShoulder, RightElbow, RightWrist,
}
