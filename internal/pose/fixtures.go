package pose

import "math"

// Fixture geometry: shoulders at y=0.40, elbows 0.15 below them.
const (
	fixtureShoulderY = 0.40
	fixtureSegment   = 0.15
	fixtureLeftX     = 0.60
	fixtureRightX    = 0.40
)

// ArmPose returns a pose whose left and right elbow angles are the given
// values in degrees. Upper arms hang straight down; 180 means a fully
// extended arm and smaller angles raise the forearm toward the shoulder.
func ArmPose(leftAngle, rightAngle float64) *Landmarks {
	lm := &Landmarks{}
	for i := range lm.Points {
		lm.Points[i] = Point{X: 0.5, Y: 0.5, Visibility: 0.9}
	}

	placeArm(lm, LeftShoulder, LeftElbow, LeftWrist, fixtureLeftX, leftAngle, 1)
	placeArm(lm, RightShoulder, RightElbow, RightWrist, fixtureRightX, rightAngle, -1)
	return lm
}

// placeArm puts the wrist at angle degrees from the upper arm, rotating
// outward (side=1) or mirrored (side=-1).
func placeArm(lm *Landmarks, shoulder, elbow, wrist int, x, angle, side float64) {
	elbowY := fixtureShoulderY + fixtureSegment
	lm.Points[shoulder] = Point{X: x, Y: fixtureShoulderY, Visibility: 0.99}
	lm.Points[elbow] = Point{X: x, Y: elbowY, Visibility: 0.99}

	// Direction from elbow to shoulder is straight up (-90 degrees in image coordinates).
	theta := (-90 + side*angle) * math.Pi / 180
	lm.Points[wrist] = Point{
		X:          x + fixtureSegment*math.Cos(theta),
		Y:          elbowY + fixtureSegment*math.Sin(theta),
		Visibility: 0.99,
	}
}

// ArmsExtendedLandmarks returns a pose with both arms hanging straight.
func ArmsExtendedLandmarks() *Landmarks {
	return ArmPose(180, 180)
}

// ArmsCurledLandmarks returns a pose with both forearms raised to 45 degrees.
func ArmsCurledLandmarks() *Landmarks {
	return ArmPose(45, 45)
}

// WristHeightPose returns a pose with the left shoulder at shoulderY and the
// left wrist at wristY, for displacement-based counting.
func WristHeightPose(shoulderY, wristY float64) *Landmarks {
	lm := ArmsExtendedLandmarks()
	lm.Points[LeftShoulder].Y = shoulderY
	lm.Points[LeftWrist].Y = wristY
	return lm
}
