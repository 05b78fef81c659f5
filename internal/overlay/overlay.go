// Package overlay draws the arm skeleton and rep counts onto video frames.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/curlcount/internal/pose"
	"github.com/ayusman/curlcount/internal/rep"
)

var (
	lineColor  = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	jointColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	textColor  = color.RGBA{R: 0, G: 0, B: 128, A: 0}
)

const (
	lineThickness = 3
	jointRadius   = 5
	textScale     = 1.0
	textThickness = 2
)

// TextOrigin is where the count line is drawn.
var TextOrigin = image.Pt(10, 30)

// Draw renders the snapshot onto frame in place: arm segments and joints
// when landmarks are present, and the count text always.
func Draw(frame *gocv.Mat, snap rep.Snapshot) {
	if frame == nil || frame.Empty() {
		return
	}

	if snap.Landmarks != nil {
		Skeleton(frame, snap.Landmarks)
	}
	gocv.PutText(frame, snap.Text(), TextOrigin, gocv.FontHersheySimplex, textScale, textColor, textThickness)
}

// Skeleton draws the arm segments and joint markers for lm.
func Skeleton(frame *gocv.Mat, lm *pose.Landmarks) {
	w, h := frame.Cols(), frame.Rows()

	for _, seg := range pose.ArmSegments {
		gocv.Line(frame, toPixel(lm.Points[seg[0]], w, h), toPixel(lm.Points[seg[1]], w, h), lineColor, lineThickness)
	}
	for _, idx := range pose.ArmPoints {
		gocv.Circle(frame, toPixel(lm.Points[idx], w, h), jointRadius, jointColor, -1)
	}
}

// toPixel scales a normalized landmark to frame coordinates.
func toPixel(p pose.Point, w, h int) image.Point {
	return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
}
