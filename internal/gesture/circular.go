package gesture

import (
	"fmt"
	"math"
)

// DefaultCompletionTolerance is the arc length, in key units, a live loop
// may fall short of a full turn.
const DefaultCompletionTolerance = 8.0

// Sense is the rotational sense of a circular gesture as seen on screen.
type Sense int

const (
	// NoSense marks a result that is not circular.
	NoSense Sense = iota
	Clockwise
	CounterClockwise
)

// String returns the snake_case name of s.
func (s Sense) String() string {
	switch s {
	case NoSense:
		return "none"
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter_clockwise"
	default:
		return fmt.Sprintf("sense(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sense) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sense) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*s = NoSense
	case "clockwise":
		*s = Clockwise
	case "counter_clockwise":
		*s = CounterClockwise
	default:
		return fmt.Errorf("unknown sense %q", text)
	}
	return nil
}

// senseOf maps a signed spanned angle to a Sense. With y pointing down,
// positive angles turn clockwise on screen.
func senseOf(span float64) Sense {
	if span > 0 {
		return Clockwise
	}
	return CounterClockwise
}

// CircularDirection reports whether the raw samples complete a loop
// around their centroid and in which sense.
//
// The leading approach towards the final resting position is discarded
// first, so the centroid describes the loop rather than the lead-in. Loops
// whose smallest radius is at most minSwipeLength/2 are rejected. The
// required rotation is 2π·(1 - completionTolerance/averageRadius): the
// tolerance is an arc length, so small loops get more angular slack.
//
// It serves both the live history during a drag and the finished path.
func CircularDirection(points []Point, completionTolerance, minSwipeLength float64) (Sense, bool) {
	if len(points) < 3 {
		return NoSense, false
	}

	loop := dropApproach(points)

	center := centroid(loop)
	minRadius, maxRadius := math.Inf(1), math.Inf(-1)
	for _, p := range loop {
		r := p.DistanceTo(center)
		minRadius = min(minRadius, r)
		maxRadius = max(maxRadius, r)
	}

	if minRadius <= minSwipeLength/2 {
		return NoSense, false
	}

	span := spannedAngle(loop, center)
	averageRadius := (minRadius + maxRadius) / 2
	threshold := 2 * math.Pi * (1 - completionTolerance/averageRadius)

	switch {
	case span >= threshold:
		return Clockwise, true
	case span <= -threshold:
		return CounterClockwise, true
	default:
		return NoSense, false
	}
}

// dropApproach skips the leading run of samples that keep getting closer
// to (or stay as close to) the last sample. The first sample is always
// part of that run. If nothing remains the full input is returned.
func dropApproach(points []Point) []Point {
	last := points[len(points)-1]

	for i := 1; i < len(points); i++ {
		if points[i].DistanceTo(last) > points[i-1].DistanceTo(last) {
			return points[i:]
		}
	}
	return points
}
