package gesture

import (
	"fmt"
	"math"
)

// Direction is one of the eight compass directions or Center.
type Direction int

const (
	Center Direction = iota
	Up
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
)

var directionNames = [...]string{
	Center:    "center",
	Up:        "up",
	Down:      "down",
	Left:      "left",
	Right:     "right",
	UpLeft:    "up_left",
	UpRight:   "up_right",
	DownLeft:  "down_left",
	DownRight: "down_right",
}

// String returns the snake_case name of d.
func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(directionNames) {
		return nil, fmt.Errorf("unknown direction %d", int(d))
	}
	return []byte(directionNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection returns the Direction with the given name.
func ParseDirection(name string) (Direction, error) {
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return Center, fmt.Errorf("unknown direction %q", name)
}

// Vector returns a unit translation pointing in d, or the zero vector
// for Center.
func (d Direction) Vector() Point {
	const diag = math.Sqrt2 / 2
	switch d {
	case Up:
		return Point{X: 0, Y: -1}
	case Down:
		return Point{X: 0, Y: 1}
	case Left:
		return Point{X: -1, Y: 0}
	case Right:
		return Point{X: 1, Y: 0}
	case UpLeft:
		return Point{X: -diag, Y: -diag}
	case UpRight:
		return Point{X: diag, Y: -diag}
	case DownLeft:
		return Point{X: -diag, Y: diag}
	case DownRight:
		return Point{X: diag, Y: diag}
	default:
		return Point{}
	}
}

// Quantize maps a translation to a compass direction. The horizontal
// component is divided by aspectRatio first, so a wide key needs
// proportionally more horizontal travel. Translations no longer than
// tolerance are Center.
//
// The bearing is measured from straight down (0°) towards the right
// (90°). Sectors are 45° wide and checked in order, so a boundary angle
// belongs to the first sector containing it:
//
//	[22.5, 67.5]   down_right
//	(67.5, 112.5]  right
//	(112.5, 157.5] up_right
//	(157.5, 202.5] up
//	(202.5, 247.5] up_left
//	(247.5, 292.5] left
//	(292.5, 337.5] down_left
//	otherwise      down
func Quantize(translation Point, tolerance, aspectRatio float64) Direction {
	dx := translation.X
	if aspectRatio > 0 {
		dx /= aspectRatio
	}
	dy := translation.Y

	if math.Hypot(dx, dy) <= tolerance {
		return Center
	}

	angle := math.Atan2(dx, dy) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}

	switch {
	case angle >= 22.5 && angle <= 67.5:
		return DownRight
	case angle > 67.5 && angle <= 112.5:
		return Right
	case angle > 112.5 && angle <= 157.5:
		return UpRight
	case angle > 157.5 && angle <= 202.5:
		return Up
	case angle > 202.5 && angle <= 247.5:
		return UpLeft
	case angle > 247.5 && angle <= 292.5:
		return Left
	case angle > 292.5 && angle <= 337.5:
		return DownLeft
	default:
		return Down
	}
}
