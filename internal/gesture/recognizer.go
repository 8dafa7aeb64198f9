// Package gesture classifies a hand-drawn stroke as a circle, star or
// quadrilateral using simple radial and turning-angle statistics.
package gesture

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewPoints is returned for strokes too short to classify.
var ErrTooFewPoints = errors.New("too few points")

// Shape is a recognised stroke class.
type Shape string

const (
	ShapeCircle        Shape = "circle"
	ShapeStar          Shape = "star"
	ShapeQuadrilateral Shape = "quadrilateral"
	ShapeUnknown       Shape = "unknown"
)

// Recognition thresholds.
const (
	MinPoints = 10

	cornerAngleDeg    = 40.0
	circleRoundness   = 0.28 // max radial stddev / mean radius
	circleClosureFrac = 0.15 // max start-end gap as a fraction of perimeter
	starMinCorners    = 5
	quadMinCorners    = 3
	quadMaxCorners    = 5
)

// Point is a canvas coordinate.
type Point [2]float64

// Features are the stroke statistics the classifier decides on.
type Features struct {
	Points          int     `json:"points"`
	Perimeter       float64 `json:"perimeter"`
	MeanRadius      float64 `json:"mean_radius"`
	RadialStdDev    float64 `json:"radial_stddev"`
	ClosureDistance float64 `json:"closure_distance"`
	Corners         int     `json:"corners"`
}

// Result is the classification of one stroke.
type Result struct {
	Shape    Shape    `json:"shape"`
	Features Features `json:"features"`
}

// Recognize classifies a stroke.
func Recognize(pts []Point) (Result, error) {
	if len(pts) < MinPoints {
		return Result{}, ErrTooFewPoints
	}

	f := Measure(pts)
	return Result{Shape: Classify(f), Features: f}, nil
}

// Measure computes stroke features. It does not enforce MinPoints.
func Measure(pts []Point) Features {
	f := Features{Points: len(pts)}
	if len(pts) == 0 {
		return f
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p[0], p[1]
		if i > 0 {
			f.Perimeter += distance(pts[i-1], p)
		}
	}

	centre := Point{stat.Mean(xs, nil), stat.Mean(ys, nil)}
	radii := make([]float64, len(pts))
	for i, p := range pts {
		radii[i] = distance(centre, p)
	}
	f.MeanRadius = stat.Mean(radii, nil)

	// Population standard deviation of the radii.
	dev := make([]float64, len(radii))
	copy(dev, radii)
	floats.AddConst(-f.MeanRadius, dev)
	f.RadialStdDev = math.Sqrt(floats.Dot(dev, dev) / float64(len(dev)))

	f.ClosureDistance = distance(pts[0], pts[len(pts)-1])
	f.Corners = countCorners(pts)
	return f
}

// Classify maps features to a shape. Circle takes precedence, then star.
func Classify(f Features) Shape {
	switch {
	case f.MeanRadius > 0 && f.RadialStdDev/f.MeanRadius < circleRoundness && f.ClosureDistance < f.Perimeter*circleClosureFrac:
		return ShapeCircle
	case f.Corners >= starMinCorners:
		return ShapeStar
	case f.Corners >= quadMinCorners && f.Corners <= quadMaxCorners:
		return ShapeQuadrilateral
	default:
		return ShapeUnknown
	}
}

// countCorners counts direction changes sharper than cornerAngleDeg between
// consecutive segments. Zero-length segments are skipped.
func countCorners(pts []Point) int {
	var corners int
	for i := 2; i < len(pts); i++ {
		a, b, c := pts[i-2], pts[i-1], pts[i]
		v1 := [2]float64{b[0] - a[0], b[1] - a[1]}
		v2 := [2]float64{c[0] - b[0], c[1] - b[1]}

		mag := math.Hypot(v1[0], v1[1]) * math.Hypot(v2[0], v2[1])
		if mag == 0 {
			continue
		}
		cos := (v1[0]*v2[0] + v1[1]*v2[1]) / mag
		angle := math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
		if angle > cornerAngleDeg {
			corners++
		}
	}
	return corners
}

func distance(a, b Point) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}
