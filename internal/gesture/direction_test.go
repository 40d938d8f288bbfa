package gesture

import (
	"math"
	"testing"
)

// bearing returns a translation of length 100 at deg degrees, measured
// from straight down towards the right.
func bearing(deg float64) Point {
	rad := deg * math.Pi / 180
	return Point{X: 100 * math.Sin(rad), Y: 100 * math.Cos(rad)}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name        string
		translation Point
		tolerance   float64
		aspect      float64
		want        Direction
	}{
		{"right", Point{X: 50, Y: 0}, 10, 1, Right},
		{"left", Point{X: -50, Y: 0}, 10, 1, Left},
		{"up", Point{X: 0, Y: -50}, 10, 1, Up},
		{"down", Point{X: 0, Y: 50}, 10, 1, Down},
		{"up right", Point{X: 40, Y: -40}, 10, 1, UpRight},
		{"up left", Point{X: -40, Y: -40}, 10, 1, UpLeft},
		{"down right", Point{X: 40, Y: 40}, 10, 1, DownRight},
		{"down left", Point{X: -40, Y: 40}, 10, 1, DownLeft},
		{"inside tolerance", Point{X: 5, Y: 5}, 10, 1, Center},
		{"on tolerance", Point{X: 10, Y: 0}, 10, 1, Center},
		{"zero", Point{}, 0, 1, Center},
		{"shallow right on a square key", Point{X: 50, Y: 20}, 10, 1, Right},
		{"shallow right on a wide key", Point{X: 50, Y: 20}, 10, 2, DownRight},
		{"wide key shrinks horizontal travel", Point{X: 40, Y: 0}, 30, 2, Center},
		{"just below down right", bearing(22.4), 10, 1, Down},
		{"just inside down right", bearing(22.6), 10, 1, DownRight},
		{"just inside down left", bearing(337.4), 10, 1, DownLeft},
		{"just past down left", bearing(337.6), 10, 1, Down},
		{"between right and up right", bearing(112.4), 10, 1, Right},
		{"between up and up left", bearing(202.6), 10, 1, UpLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantize(tt.translation, tt.tolerance, tt.aspect); got != tt.want {
				t.Errorf("Quantize(%v) = %v, want %v", tt.translation, got, tt.want)
			}
		})
	}
}

func TestDirection_VectorRoundTrip(t *testing.T) {
	for d := Up; d <= DownRight; d++ {
		v := d.Vector()

		if math.Abs(v.Magnitude()-1) > 1e-9 {
			t.Errorf("%v: expected unit vector, got length %f", d, v.Magnitude())
		}

		scaled := Point{X: v.X * 50, Y: v.Y * 50}
		if got := Quantize(scaled, 10, 1); got != d {
			t.Errorf("%v: vector quantizes to %v", d, got)
		}
	}

	if v := Center.Vector(); v != (Point{}) {
		t.Errorf("expected zero vector for center, got %v", v)
	}
}

func TestParseDirection(t *testing.T) {
	for d := Center; d <= DownRight; d++ {
		got, err := ParseDirection(d.String())
		if err != nil {
			t.Fatalf("ParseDirection(%q) error = %v", d.String(), err)
		}
		if got != d {
			t.Errorf("ParseDirection(%q) = %v", d.String(), got)
		}
	}

	if _, err := ParseDirection("north"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestDirection_StringOutOfRange(t *testing.T) {
	if got := Direction(42).String(); got != "direction(42)" {
		t.Errorf("unexpected name %q", got)
	}
	if _, err := Direction(42).MarshalText(); err == nil {
		t.Error("expected marshal error for unknown direction")
	}
}
