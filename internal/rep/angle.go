// Package rep turns per-frame pose landmarks into exercise repetition counts.
package rep

import (
	"math"

	"github.com/ayusman/curlcount/internal/pose"
)

// Angle returns the interior angle at b, in degrees, formed by the segments
// b→a and b→c. The result is always in [0, 180]; the smaller of the two
// angles at the vertex is taken. Z is ignored.
//
// Coincident points do not fail: atan2 of a zero vector is 0, and the value
// that falls out of that is returned as is.
func Angle(a, b, c pose.Point) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)

	if angle > 180.0 {
		angle = 360.0 - angle
	}
	return angle
}

// ElbowAngle returns the shoulder-elbow-wrist angle of an arm.
func ElbowAngle(arm pose.ArmJoints) float64 {
	return Angle(arm.Shoulder, arm.Elbow, arm.Wrist)
}

// WristDisplacement returns how far the wrist is below the shoulder in
// normalized image units. Positive values mean the wrist is lower.
func WristDisplacement(arm pose.ArmJoints) float64 {
	return arm.Wrist.Y - arm.Shoulder.Y
}
