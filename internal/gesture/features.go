package gesture

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// maxMirrorPairs bounds how many (i, n-1-i) pairs feed PathSeparation.
	maxMirrorPairs = 10
	// minTurnCross is the smallest cross product counted as a turn.
	minTurnCross = 0.5
)

// Features is a read-only geometric description of a cleaned path.
type Features struct {
	PathLength  float64 `json:"path_length"`
	ChordLength float64 `json:"chord_length"`
	BoundingBox Rect    `json:"bounding_box"`

	MaxDisplacement         float64 `json:"max_displacement"`
	MaxDisplacementPoint    Point   `json:"max_displacement_point"`
	MaxDisplacementVector   Point   `json:"max_displacement_vector"` // furthest point minus start
	MaxDisplacementIndex    int     `json:"max_displacement_index"`
	MaxDisplacementProgress float64 `json:"max_displacement_progress"` // 0 at start, 1 at end
	Centroid                Point   `json:"centroid"`

	ReturnRatio float64 `json:"return_ratio"` // chord / path, low when the finger came back
	AspectRatio float64 `json:"aspect_ratio"` // bounding box width / height

	DominantAngle        float64 `json:"dominant_angle"`         // start to end, radians
	MaxDisplacementAngle float64 `json:"max_displacement_angle"` // start to furthest point, radians

	AngularSpan    float64 `json:"angular_span"`    // signed radians, positive is clockwise on screen
	Circularity    float64 `json:"circularity"`     // 1 for a perfect ring
	PathSeparation float64 `json:"path_separation"` // high for spirals, low for returns

	TurnConsistency     float64 `json:"turn_consistency"`
	OrientedCompactness float64 `json:"oriented_compactness"`
}

// emptyFeatures describes a path with fewer than two samples.
var emptyFeatures = Features{
	ReturnRatio:     1,
	AspectRatio:     1,
	TurnConsistency: 1,
}

// Extract computes the features of a cleaned path. It is total: paths
// with fewer than two samples yield the neutral feature set.
func Extract(points []Point) Features {
	if len(points) < 2 {
		return emptyFeatures
	}

	n := len(points)
	start := points[0]
	end := points[n-1]

	steps := make([]float64, n-1)
	for i := 1; i < n; i++ {
		steps[i-1] = points[i-1].DistanceTo(points[i])
	}
	pathLength := floats.Sum(steps)
	chordLength := start.DistanceTo(end)

	fromStart := make([]float64, n)
	for i, p := range points {
		fromStart[i] = start.DistanceTo(p)
	}
	maxIndex := floats.MaxIdx(fromStart)
	maxPoint := points[maxIndex]
	maxDisplacement := fromStart[maxIndex]

	center := centroid(points)

	f := Features{
		PathLength:              pathLength,
		ChordLength:             chordLength,
		BoundingBox:             boundingBox(points),
		MaxDisplacement:         maxDisplacement,
		MaxDisplacementPoint:    maxPoint,
		MaxDisplacementVector:   maxPoint.Sub(start),
		MaxDisplacementIndex:    maxIndex,
		MaxDisplacementProgress: float64(maxIndex) / float64(n-1),
		Centroid:                center,
		DominantAngle:           math.Atan2(end.Y-start.Y, end.X-start.X),
		MaxDisplacementAngle:    math.Atan2(maxPoint.Y-start.Y, maxPoint.X-start.X),
		AngularSpan:             spannedAngle(points, center),
		Circularity:             circularity(points, center),
		PathSeparation:          pathSeparation(points, maxDisplacement),
		TurnConsistency:         turnConsistency(points),
		ReturnRatio:             1,
		AspectRatio:             1,
	}
	f.OrientedCompactness = orientedCompactness(points, f.MaxDisplacementAngle)

	if pathLength > 0 {
		f.ReturnRatio = chordLength / pathLength
	}
	if f.BoundingBox.Height > 0 {
		f.AspectRatio = f.BoundingBox.Width / f.BoundingBox.Height
	}

	return f
}

func boundingBox(points []Point) Rect {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return Rect{MinX: minX, MinY: minY, Width: maxX - minX, Height: maxY - minY}
}

// circularity is 1 minus the coefficient of variation of the
// point-to-centroid radii, clamped to [0, 1].
func circularity(points []Point, center Point) float64 {
	radii := make([]float64, len(points))
	for i, p := range points {
		radii[i] = p.DistanceTo(center)
	}

	mean, variance := stat.PopMeanVariance(radii, nil)
	if !(mean > 0) {
		return 0
	}
	std := math.Sqrt(math.Max(variance, 0))
	return clamp01(1 - std/mean)
}

// pathSeparation compares early samples with their time-mirrored late
// counterparts. A spiral keeps them apart, a return gesture brings them
// together.
func pathSeparation(points []Point, maxDisplacement float64) float64 {
	if maxDisplacement <= 0 {
		return 0
	}

	n := len(points)
	pairs := min(n/2, maxMirrorPairs)
	if pairs == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < pairs; i++ {
		sum += points[i].DistanceTo(points[n-1-i])
	}
	return sum / float64(pairs) / maxDisplacement
}

// turnConsistency is the share of significant turns that go the
// majority way round.
func turnConsistency(points []Point) float64 {
	var cw, ccw int
	for i := 1; i < len(points)-1; i++ {
		v1 := points[i].Sub(points[i-1])
		v2 := points[i+1].Sub(points[i])
		cross := v1.X*v2.Y - v1.Y*v2.X
		switch {
		case cross > minTurnCross:
			cw++
		case cross < -minTurnCross:
			ccw++
		}
	}

	total := cw + ccw
	if total == 0 {
		return 1
	}
	return float64(max(cw, ccw)) / float64(total)
}

// orientedCompactness projects the path onto the axis through the start
// point at angle and returns its width divided by its length.
func orientedCompactness(points []Point, angle float64) float64 {
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	start := points[0]

	var minPara, maxPara, minPerp, maxPerp float64
	for _, p := range points {
		d := p.Sub(start)
		para := d.X*cosA + d.Y*sinA
		perp := -d.X*sinA + d.Y*cosA
		minPara = min(minPara, para)
		maxPara = max(maxPara, para)
		minPerp = min(minPerp, perp)
		maxPerp = max(maxPerp, perp)
	}

	length := maxPara - minPara
	if length <= 0 {
		return 0
	}
	return (maxPerp - minPerp) / length
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// String renders the features for debug logging.
func (f Features) String() string {
	var b strings.Builder
	b.WriteString("features:\n")
	fmt.Fprintf(&b, "  path_length: %.1f\n", f.PathLength)
	fmt.Fprintf(&b, "  chord_length: %.1f\n", f.ChordLength)
	fmt.Fprintf(&b, "  max_displacement: %.1f @ %.0f%%\n", f.MaxDisplacement, f.MaxDisplacementProgress*100)
	fmt.Fprintf(&b, "  return_ratio: %.2f\n", f.ReturnRatio)
	fmt.Fprintf(&b, "  angular_span: %.1f°\n", f.AngularSpan*180/math.Pi)
	fmt.Fprintf(&b, "  circularity: %.2f\n", f.Circularity)
	fmt.Fprintf(&b, "  path_separation: %.2f\n", f.PathSeparation)
	fmt.Fprintf(&b, "  turn_consistency: %.2f\n", f.TurnConsistency)
	fmt.Fprintf(&b, "  oriented_compactness: %.2f", f.OrientedCompactness)
	return b.String()
}
