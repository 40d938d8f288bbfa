package gesture

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// circlePath returns n evenly spaced samples on a circle plus a closing
// sample equal to the first. sign > 0 runs right, down, left, up, which
// is clockwise on screen.
func circlePath(center Point, radius float64, n int, sign float64) []Point {
	points := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		angle := sign * float64(i) * 2 * math.Pi / float64(n)
		points = append(points, Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		})
	}
	return append(points, points[0])
}

func TestExtract_StraightLine(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}, {X: 40, Y: 0}}

	f := Extract(points)

	if f.PathLength != 40 {
		t.Errorf("expected path length 40, got %f", f.PathLength)
	}
	if f.ChordLength != 40 {
		t.Errorf("expected chord length 40, got %f", f.ChordLength)
	}
	if math.Abs(f.ReturnRatio-1) > 0.01 {
		t.Errorf("expected return ratio ~1, got %f", f.ReturnRatio)
	}
	if math.Abs(f.DominantAngle) > 0.1 {
		t.Errorf("expected dominant angle ~0, got %f", f.DominantAngle)
	}
	if f.MaxDisplacementProgress <= 0.9 {
		t.Errorf("expected max displacement at the end, got progress %f", f.MaxDisplacementProgress)
	}
	if f.Centroid != (Point{X: 20, Y: 0}) {
		t.Errorf("expected centroid (20, 0), got %v", f.Centroid)
	}
	if f.BoundingBox != (Rect{MinX: 0, MinY: 0, Width: 40, Height: 0}) {
		t.Errorf("unexpected bounding box %+v", f.BoundingBox)
	}
	if f.AspectRatio != 1 {
		t.Errorf("expected aspect ratio 1 for a flat box, got %f", f.AspectRatio)
	}
}

func TestExtract_ReturnSwipe(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0},
		{X: 15, Y: 0},
		{X: 30, Y: 0},
		{X: 45, Y: 0}, // furthest
		{X: 30, Y: 0},
		{X: 15, Y: 0},
		{X: 5, Y: 0}, // back near start
	}

	f := Extract(points)

	if f.MaxDisplacement != 45 {
		t.Errorf("expected max displacement 45, got %f", f.MaxDisplacement)
	}
	if f.MaxDisplacementIndex != 3 {
		t.Errorf("expected max displacement index 3, got %d", f.MaxDisplacementIndex)
	}
	if f.ChordLength >= f.MaxDisplacement {
		t.Errorf("expected chord %f below max displacement %f", f.ChordLength, f.MaxDisplacement)
	}
	if f.ReturnRatio >= 0.5 {
		t.Errorf("expected return ratio < 0.5, got %f", f.ReturnRatio)
	}
	if f.MaxDisplacementProgress <= 0.3 || f.MaxDisplacementProgress >= 0.7 {
		t.Errorf("expected progress in (0.3, 0.7), got %f", f.MaxDisplacementProgress)
	}
	if f.PathSeparation >= 0.5 {
		t.Errorf("expected low path separation for a return, got %f", f.PathSeparation)
	}
}

func TestExtract_CircularPath(t *testing.T) {
	points := circlePath(Point{X: 30, Y: 30}, 30, 16, 1)

	f := Extract(points)

	if f.Circularity <= 0.5 {
		t.Errorf("expected circularity > 0.5, got %f", f.Circularity)
	}
	if math.Abs(f.AngularSpan) <= 1.5*math.Pi {
		t.Errorf("expected |angular span| > 270°, got %f°", f.AngularSpan*180/math.Pi)
	}
	if f.PathSeparation <= 0.5 {
		t.Errorf("expected path separation > 0.5, got %f", f.PathSeparation)
	}
	if f.TurnConsistency != 1 {
		t.Errorf("expected every turn in the same sense, got %f", f.TurnConsistency)
	}
}

func TestExtract_AngularSpanSign(t *testing.T) {
	// y grows downwards: right, down, left, up is clockwise on screen.
	cw := Extract(circlePath(Point{X: 30, Y: 30}, 30, 16, 1))
	if cw.AngularSpan <= 0 {
		t.Errorf("expected positive span for clockwise loop, got %f", cw.AngularSpan)
	}

	ccw := Extract(circlePath(Point{X: 30, Y: 30}, 30, 16, -1))
	if ccw.AngularSpan >= 0 {
		t.Errorf("expected negative span for counter-clockwise loop, got %f", ccw.AngularSpan)
	}
}

func TestExtract_DegeneratePaths(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"nil", nil},
		{"empty", []Point{}},
		{"single point", []Point{{X: 10, Y: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Extract(tt.points)

			if f.PathLength != 0 || f.ChordLength != 0 || f.MaxDisplacement != 0 {
				t.Errorf("expected zero distances, got %+v", f)
			}
			if f.ReturnRatio != 1 {
				t.Errorf("expected return ratio 1, got %f", f.ReturnRatio)
			}
			if f.Circularity != 0 {
				t.Errorf("expected circularity 0, got %f", f.Circularity)
			}
		})
	}
}

func TestExtract_StationaryPath(t *testing.T) {
	f := Extract([]Point{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}})

	if f.PathLength != 0 {
		t.Errorf("expected path length 0, got %f", f.PathLength)
	}
	if f.ReturnRatio != 1 {
		t.Errorf("expected return ratio 1 for zero path, got %f", f.ReturnRatio)
	}
	if f.Circularity != 0 {
		t.Errorf("expected circularity 0 for zero radius, got %f", f.Circularity)
	}
	if f.PathSeparation != 0 {
		t.Errorf("expected path separation 0, got %f", f.PathSeparation)
	}
	if f.MaxDisplacementIndex != 0 || f.MaxDisplacementProgress != 0 {
		t.Errorf("expected max displacement at start, got index %d", f.MaxDisplacementIndex)
	}
}

func TestExtract_TwoPoints(t *testing.T) {
	f := Extract([]Point{{X: 0, Y: 0}, {X: 50, Y: 0}})

	if f.PathLength != 50 {
		t.Errorf("expected path length 50, got %f", f.PathLength)
	}
	if f.ChordLength != 50 {
		t.Errorf("expected chord length 50, got %f", f.ChordLength)
	}
	if f.MaxDisplacementProgress != 1 {
		t.Errorf("expected progress 1, got %f", f.MaxDisplacementProgress)
	}
}

func TestExtract_FirstMaximumWins(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 0}, {X: -10, Y: 0}}

	f := Extract(points)

	if f.MaxDisplacementIndex != 1 {
		t.Errorf("expected first maximum at index 1, got %d", f.MaxDisplacementIndex)
	}
	if f.MaxDisplacementPoint != (Point{X: 10, Y: 0}) {
		t.Errorf("expected (10, 0), got %v", f.MaxDisplacementPoint)
	}
	if math.Abs(f.MaxDisplacementProgress-1.0/3) > 1e-12 {
		t.Errorf("expected progress 1/3, got %f", f.MaxDisplacementProgress)
	}
}

func TestExtract_MaxDisplacementAngle(t *testing.T) {
	tests := []struct {
		name string
		end  Point
		want float64
	}{
		{"right", Point{X: 50, Y: 0}, 0},
		{"down", Point{X: 0, Y: 50}, math.Pi / 2},
		{"down right", Point{X: 50, Y: 50}, math.Pi / 4},
		{"up", Point{X: 0, Y: -50}, -math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Extract([]Point{{X: 0, Y: 0}, tt.end})
			if math.Abs(f.MaxDisplacementAngle-tt.want) > 0.1 {
				t.Errorf("expected angle ~%f, got %f", tt.want, f.MaxDisplacementAngle)
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	points := circlePath(Point{X: 3, Y: -8}, 27, 23, -1)
	points = append(points, Point{X: 40, Y: 2}, Point{X: 44, Y: 9})

	first := Extract(points)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Extract(points)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestFeatures_String(t *testing.T) {
	s := Extract([]Point{{X: 0, Y: 0}, {X: 40, Y: 0}}).String()
	if s == "" {
		t.Fatal("expected non-empty description")
	}
}
