package gesture

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind is the class of a recognized gesture.
type Kind int

const (
	Tap Kind = iota
	Swipe
	ReturnSwipe
	Circular
)

var kindNames = [...]string{
	Tap:         "tap",
	Swipe:       "swipe",
	ReturnSwipe: "return_swipe",
	Circular:    "circular",
}

// Kinds lists every gesture class in decision order.
var Kinds = []Kind{Tap, Circular, ReturnSwipe, Swipe}

// String returns the snake_case name of k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind returns the Kind with the given name.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return Tap, fmt.Errorf("unknown gesture kind %q", name)
}

// Result is a classified gesture. Direction is set for Swipe and
// ReturnSwipe, Sense for Circular.
type Result struct {
	Kind      Kind      `json:"kind"`
	Direction Direction `json:"direction"`
	Sense     Sense     `json:"sense"`
}

// String renders r as "kind", "kind:direction" or "kind:sense".
func (r Result) String() string {
	switch r.Kind {
	case Swipe, ReturnSwipe:
		return r.Kind.String() + ":" + r.Direction.String()
	case Circular:
		return r.Kind.String() + ":" + r.Sense.String()
	default:
		return r.Kind.String()
	}
}

// ParseResult parses the form produced by Result.String. A swipe without
// a direction, or a circle without a sense, is rejected.
func ParseResult(s string) (Result, error) {
	name, qualifier, _ := strings.Cut(s, ":")

	kind, err := ParseKind(name)
	if err != nil {
		return Result{}, err
	}

	r := Result{Kind: kind}
	switch kind {
	case Swipe, ReturnSwipe:
		if r.Direction, err = ParseDirection(qualifier); err != nil {
			return Result{}, fmt.Errorf("%s: %w", kind, err)
		}
		if r.Direction == Center {
			return Result{}, fmt.Errorf("%s needs a direction", kind)
		}
	case Circular:
		if err := r.Sense.UnmarshalText([]byte(qualifier)); err != nil {
			return Result{}, fmt.Errorf("%s: %w", kind, err)
		}
		if r.Sense == NoSense {
			return Result{}, fmt.Errorf("%s needs a sense", kind)
		}
	default:
		if qualifier != "" {
			return Result{}, fmt.Errorf("%s takes no qualifier, got %q", kind, qualifier)
		}
	}
	return r, nil
}

// Range is a closed interval.
type Range struct {
	Lo float64 `json:"lo" toml:"lo"`
	Hi float64 `json:"hi" toml:"hi"`
}

// Contains reports whether lo <= v <= hi.
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// Classification defaults. MinSwipeLength is about 55% of a 54-unit key.
const (
	DefaultMinSwipeLength        = 30.0
	DefaultMaxReturnRatio        = 0.5
	DefaultMinCircularity        = 0.3
	DefaultMinAngularSpan        = 1.5 * math.Pi
	DefaultMinPathSeparation     = 0.5
	DefaultFinalOffsetMultiplier = 0.5
)

// Thresholds tune the decision tree. A Thresholds value is immutable
// for the duration of a classification.
type Thresholds struct {
	// MinSwipeLength is the displacement below which a gesture is a tap.
	MinSwipeLength float64 `json:"min_swipe_length" toml:"min_swipe_length"`
	// MaxReturnRatio is the chord/path ratio below which the finger came back.
	MaxReturnRatio float64 `json:"max_return_ratio" toml:"max_return_ratio"`
	// ReturnDisplacementRange bounds where the furthest point may occur.
	ReturnDisplacementRange Range `json:"return_displacement_range" toml:"return_displacement_range"`
	// MinCircularity is the radius uniformity a loop must exceed.
	MinCircularity float64 `json:"min_circularity" toml:"min_circularity"`
	// MinAngularSpan is the rotation in radians a loop must exceed.
	MinAngularSpan float64 `json:"min_angular_span" toml:"min_angular_span"`
	// MinPathSeparation separates spirals from return gestures.
	MinPathSeparation float64 `json:"min_path_separation" toml:"min_path_separation"`
	// FinalOffsetMultiplier scales MinSwipeLength into the direction dead zone.
	FinalOffsetMultiplier float64 `json:"final_offset_multiplier" toml:"final_offset_multiplier"`
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSwipeLength:          DefaultMinSwipeLength,
		MaxReturnRatio:          DefaultMaxReturnRatio,
		ReturnDisplacementRange: Range{Lo: 0.2, Hi: 0.8},
		MinCircularity:          DefaultMinCircularity,
		MinAngularSpan:          DefaultMinAngularSpan,
		MinPathSeparation:       DefaultMinPathSeparation,
		FinalOffsetMultiplier:   DefaultFinalOffsetMultiplier,
	}
}

// Validate reports every constraint t violates.
func (t Thresholds) Validate() error {
	var errs []error
	if !(t.MinSwipeLength > 0) {
		errs = append(errs, fmt.Errorf("min swipe length must be positive, got %v", t.MinSwipeLength))
	}
	if !(t.MaxReturnRatio > 0) {
		errs = append(errs, fmt.Errorf("max return ratio must be positive, got %v", t.MaxReturnRatio))
	}
	if r := t.ReturnDisplacementRange; !(r.Lo >= 0 && r.Lo < r.Hi && r.Hi <= 1) {
		errs = append(errs, fmt.Errorf("return displacement range must satisfy 0 <= lo < hi <= 1, got [%v, %v]", r.Lo, r.Hi))
	}
	if !(t.MinCircularity >= 0 && t.MinCircularity <= 1) {
		errs = append(errs, fmt.Errorf("min circularity must be within [0, 1], got %v", t.MinCircularity))
	}
	if !(t.MinAngularSpan > 0) {
		errs = append(errs, fmt.Errorf("min angular span must be positive, got %v", t.MinAngularSpan))
	}
	if !(t.MinPathSeparation >= 0) {
		errs = append(errs, fmt.Errorf("min path separation must not be negative, got %v", t.MinPathSeparation))
	}
	if !(t.FinalOffsetMultiplier >= 0) {
		errs = append(errs, fmt.Errorf("final offset multiplier must not be negative, got %v", t.FinalOffsetMultiplier))
	}
	return errors.Join(errs...)
}

// IsTap reports whether the furthest point stayed inside the tap radius.
func (t Thresholds) IsTap(f Features) bool {
	return f.MaxDisplacement < t.MinSwipeLength
}

// IsCircular reports whether f describes a large, round, spiralling loop.
// The path separation check keeps return swipes with an incidental large
// angular span out.
func (t Thresholds) IsCircular(f Features) bool {
	return f.PathLength > 2*t.MinSwipeLength &&
		f.Circularity > t.MinCircularity &&
		math.Abs(f.AngularSpan) > t.MinAngularSpan &&
		f.PathSeparation > t.MinPathSeparation
}

// IsReturn reports whether the finger went out and came back, with the
// furthest point well inside the path rather than at either end.
func (t Thresholds) IsReturn(f Features) bool {
	return f.MaxDisplacement >= t.MinSwipeLength &&
		f.ReturnRatio < t.MaxReturnRatio &&
		t.ReturnDisplacementRange.Contains(f.MaxDisplacementProgress)
}

// Classify applies the decision tree to f. Rules are checked in order
// and the first match wins:
//
//  1. Tap
//  2. Circular
//  3. ReturnSwipe
//  4. Swipe
//
// The direction of swipes is taken from the furthest point. The features
// come from an aspect-normalized path, so no further correction applies.
func Classify(f Features, t Thresholds) Result {
	if t.IsTap(f) {
		return Result{Kind: Tap}
	}

	if t.IsCircular(f) {
		return Result{Kind: Circular, Sense: senseOf(f.AngularSpan)}
	}

	direction := Quantize(f.MaxDisplacementVector, t.MinSwipeLength*t.FinalOffsetMultiplier, 1)

	if t.IsReturn(f) {
		return Result{Kind: ReturnSwipe, Direction: direction}
	}
	return Result{Kind: Swipe, Direction: direction}
}

// Recognize cleans points, extracts their features and classifies them.
func Recognize(points []Point, pre *Preprocessor, t Thresholds) (Result, Features) {
	f := Extract(pre.Preprocess(points))
	return Classify(f, t), f
}
