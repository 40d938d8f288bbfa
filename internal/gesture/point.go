// Package gesture recognizes single-key touch gestures (tap, swipe,
// return-swipe and circular) from a sequence of 2D touch samples.
//
// Coordinates are key-local translations from the touch-down position.
// The x axis grows to the right and the y axis grows downwards, as on a
// screen. Every function in this package is pure and total: degenerate
// input resolves to a neutral result rather than an error.
package gesture

import "math"

// Point is a touch sample in key-local coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns the vector p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Magnitude returns the Euclidean length of p treated as a vector.
func (p Point) Magnitude() float64 {
	return math.Hypot(p.X, p.Y)
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// centroid returns the arithmetic mean of points. The caller guarantees
// len(points) > 0.
func centroid(points []Point) Point {
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n}
}

// spannedAngle accumulates the signed turning angle between consecutive
// center-relative vectors. With y pointing down a positive total is a
// clockwise rotation on screen.
func spannedAngle(points []Point, center Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		a := points[i-1].Sub(center)
		b := points[i].Sub(center)
		cross := a.X*b.Y - a.Y*b.X
		dot := a.X*b.X + a.Y*b.Y
		total += math.Atan2(cross, dot)
	}
	return total
}
