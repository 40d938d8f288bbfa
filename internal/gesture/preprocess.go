package gesture

import (
	"errors"
	"fmt"
)

// Preprocessing defaults.
const (
	DefaultJitterThreshold = 3.0
	DefaultMaxJumpDistance = 50.0
	DefaultSmoothingWindow = 5
	DefaultSmoothingOrder  = 2

	// endpointMinDistance is how far the final input sample must be from
	// the last kept sample to be appended after jitter filtering.
	endpointMinDistance = 0.1
)

// PreprocessConfig holds the tuning values for the cleaning pipeline.
type PreprocessConfig struct {
	// JitterThreshold is the minimum distance between kept samples.
	JitterThreshold float64 `json:"jitter_threshold" toml:"jitter_threshold"`
	// MaxJumpDistance is the largest step accepted as a real movement.
	MaxJumpDistance float64 `json:"max_jump_distance" toml:"max_jump_distance"`
	// SmoothingWindow is the Savitzky-Golay window size (odd, >= 3).
	SmoothingWindow int `json:"smoothing_window" toml:"smoothing_window"`
	// SmoothingOrder is the Savitzky-Golay polynomial order.
	SmoothingOrder int `json:"smoothing_order" toml:"smoothing_order"`
	// AspectRatio is the key width divided by its height.
	AspectRatio float64 `json:"aspect_ratio" toml:"aspect_ratio"`
}

// DefaultPreprocessConfig returns the default pipeline configuration
// for a square key.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		JitterThreshold: DefaultJitterThreshold,
		MaxJumpDistance: DefaultMaxJumpDistance,
		SmoothingWindow: DefaultSmoothingWindow,
		SmoothingOrder:  DefaultSmoothingOrder,
		AspectRatio:     1.0,
	}
}

// WithAspectRatio returns a copy of c for a key with the given ratio.
func (c PreprocessConfig) WithAspectRatio(ratio float64) PreprocessConfig {
	c.AspectRatio = ratio
	return c
}

// Validate reports every constraint c violates.
func (c PreprocessConfig) Validate() error {
	var errs []error
	if !(c.JitterThreshold > 0) {
		errs = append(errs, fmt.Errorf("jitter threshold must be positive, got %v", c.JitterThreshold))
	}
	if !(c.MaxJumpDistance > 0) {
		errs = append(errs, fmt.Errorf("max jump distance must be positive, got %v", c.MaxJumpDistance))
	}
	if c.SmoothingWindow < 3 || c.SmoothingWindow%2 == 0 {
		errs = append(errs, fmt.Errorf("smoothing window must be odd and at least 3, got %d", c.SmoothingWindow))
	}
	if c.SmoothingOrder < 1 {
		errs = append(errs, fmt.Errorf("smoothing order must be at least 1, got %d", c.SmoothingOrder))
	}
	if !(c.AspectRatio > 0) {
		errs = append(errs, fmt.Errorf("aspect ratio must be positive, got %v", c.AspectRatio))
	}
	return errors.Join(errs...)
}

// Preprocessor cleans raw touch paths before feature extraction.
type Preprocessor struct {
	config PreprocessConfig
	kernel []float64
}

// NewPreprocessor creates a Preprocessor for the given configuration.
// An invalid configuration is a programming error and panics; callers
// holding user-supplied values run Validate first.
func NewPreprocessor(config PreprocessConfig) *Preprocessor {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("gesture: invalid preprocess config: %v", err))
	}
	return &Preprocessor{
		config: config,
		kernel: savitzkyGolayKernel(config.SmoothingWindow, config.SmoothingOrder),
	}
}

// Config returns the configuration the Preprocessor was built with.
func (p *Preprocessor) Config() PreprocessConfig {
	return p.config
}

// Preprocess runs the full pipeline on points.
//
// Pipeline:
// 1. Drop jitter (sub-threshold steps), keeping the true endpoint
// 2. Drop outliers (impossible jumps)
// 3. Divide x by the key aspect ratio
// 4. Savitzky-Golay smoothing
//
// Sequences shorter than two points are returned unchanged.
func (p *Preprocessor) Preprocess(points []Point) []Point {
	if len(points) < 2 {
		return points
	}

	dejittered := p.FilterJitter(points)
	cleaned := p.FilterOutliers(dejittered)
	normalized := p.NormalizeAspectRatio(cleaned)
	return p.SmoothSavitzkyGolay(normalized)
}

// FilterJitter removes samples closer than JitterThreshold to the last
// kept sample. The last input sample is appended afterwards unless it
// coincides with the last kept one, so the lift-off position survives.
func (p *Preprocessor) FilterJitter(points []Point) []Point {
	if len(points) < 2 {
		return points
	}

	filtered := make([]Point, 0, len(points)+1)
	filtered = append(filtered, points[0])

	for _, current := range points[1:] {
		if current.DistanceTo(filtered[len(filtered)-1]) >= p.config.JitterThreshold {
			filtered = append(filtered, current)
		}
	}

	last := points[len(points)-1]
	if last.DistanceTo(filtered[len(filtered)-1]) >= endpointMinDistance {
		filtered = append(filtered, last)
	}

	return filtered
}

// FilterOutliers drops samples further than MaxJumpDistance from the
// last kept sample.
func (p *Preprocessor) FilterOutliers(points []Point) []Point {
	if len(points) < 2 {
		return points
	}

	filtered := make([]Point, 0, len(points))
	filtered = append(filtered, points[0])

	for _, current := range points[1:] {
		if current.DistanceTo(filtered[len(filtered)-1]) <= p.config.MaxJumpDistance {
			filtered = append(filtered, current)
		}
	}

	return filtered
}

// NormalizeAspectRatio divides every x coordinate by the aspect ratio so
// that equal physical travel yields equal distances on non-square keys.
// It is the identity for a ratio of exactly 1.
func (p *Preprocessor) NormalizeAspectRatio(points []Point) []Point {
	if p.config.AspectRatio == 1.0 {
		return points
	}

	normalized := make([]Point, len(points))
	for i, pt := range points {
		normalized[i] = Point{X: pt.X / p.config.AspectRatio, Y: pt.Y}
	}
	return normalized
}

// SmoothSavitzkyGolay convolves x and y independently with the smoothing
// kernel. Indices beyond either end are clamped to the endpoint. The
// output has the same length as the input; inputs shorter than the
// window are returned unchanged.
func (p *Preprocessor) SmoothSavitzkyGolay(points []Point) []Point {
	window := len(p.kernel)
	if len(points) < window {
		return points
	}

	half := window / 2
	last := len(points) - 1
	smoothed := make([]Point, len(points))

	for i := range points {
		var sumX, sumY float64
		for j, coeff := range p.kernel {
			idx := min(max(i-half+j, 0), last)
			sumX += coeff * points[idx].X
			sumY += coeff * points[idx].Y
		}
		smoothed[i] = Point{X: sumX, Y: sumY}
	}

	return smoothed
}

// Pre-computed quadratic/cubic Savitzky-Golay numerators by window size.
var savitzkyGolayTables = map[int]struct {
	numerators []float64
	norm       float64
}{
	5:  {[]float64{-3, 12, 17, 12, -3}, 35},
	7:  {[]float64{-2, 3, 6, 7, 6, 3, -2}, 21},
	9:  {[]float64{-21, 14, 39, 54, 59, 54, 39, 14, -21}, 231},
	11: {[]float64{-36, 9, 44, 69, 84, 89, 84, 69, 44, 9, -36}, 429},
}

// savitzkyGolayKernel returns the convolution coefficients for the
// window and polynomial order. Combinations without a table entry fall
// back to a uniform moving average.
func savitzkyGolayKernel(window, order int) []float64 {
	kernel := make([]float64, window)

	if table, ok := savitzkyGolayTables[window]; ok && order <= 3 {
		for i, n := range table.numerators {
			kernel[i] = n / table.norm
		}
		return kernel
	}

	for i := range kernel {
		kernel[i] = 1.0 / float64(window)
	}
	return kernel
}
