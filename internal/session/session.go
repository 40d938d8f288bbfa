// Package session tracks a single touch on a key from finger down to
// lift-off and classifies it.
package session

import (
	"fmt"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/gesture"
)

// Mode selects how a finished touch is classified.
type Mode int

const (
	// ModeFeatures runs the feature decision tree over the cleaned path.
	// Character keys use it.
	ModeFeatures Mode = iota
	// ModeOffset decides from the largest and final offsets and the live
	// circular detector. Utility keys use it.
	ModeOffset
)

// String returns the name of m.
func (m Mode) String() string {
	switch m {
	case ModeFeatures:
		return "features"
	case ModeOffset:
		return "offset"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode returns the Mode with the given name. The empty string is
// ModeFeatures.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "features", "":
		return ModeFeatures, nil
	case "offset":
		return ModeOffset, nil
	default:
		return ModeFeatures, fmt.Errorf("unknown mode %q", name)
	}
}

// MaxSamples caps the raw path recorded for one touch. Once it is full
// each new sample replaces the last one, so the path still ends where the
// finger is.
const MaxSamples = 4096

// Update is the live feedback for one move sample.
type Update struct {
	// Preview is the direction the touch would currently resolve to.
	Preview gesture.Direction `json:"preview"`
	// Circular is the sense reported by the live detector for this sample.
	Circular gesture.Sense `json:"circular"`
	// Fired is true only for the sample on which the detector first fired.
	Fired bool `json:"fired"`
}

// Outcome is the result of a finished touch.
type Outcome struct {
	Result   gesture.Result   `json:"result"`
	Features gesture.Features `json:"features"`
	// LiveCircular is the first sense the live detector reported.
	LiveCircular gesture.Sense `json:"live_circular"`
	// PathCircular is the detector's verdict over the whole raw path.
	PathCircular gesture.Sense `json:"path_circular"`
	Samples      int           `json:"samples"`
}

// Session holds the state of one touch. It is not safe for concurrent use;
// each touch is driven from a single goroutine.
type Session struct {
	settings config.Settings
	aspect   float64
	mode     Mode
	pre      *gesture.Preprocessor

	path      []gesture.Point
	history   *gesture.History
	scratch   []gesture.Point
	maxOffset gesture.Point
	live      gesture.Sense
	active    bool
}

// New creates a session for a key with the given width/height ratio.
// settings must be valid. A non-positive aspectRatio is treated as 1.
func New(settings config.Settings, aspectRatio float64, mode Mode) *Session {
	if !(aspectRatio > 0) {
		aspectRatio = 1
	}
	return &Session{
		settings: settings,
		aspect:   aspectRatio,
		mode:     mode,
		pre:      gesture.NewPreprocessor(settings.Preprocess.WithAspectRatio(aspectRatio)),
		history:  gesture.NewHistory(settings.Live.HistorySize),
		scratch:  make([]gesture.Point, 0, settings.Live.HistorySize),
	}
}

// Mode returns the classification mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Active reports whether a touch is in progress.
func (s *Session) Active() bool {
	return s.active
}

// Begin starts a new touch at the key-local origin, discarding any
// previous state.
func (s *Session) Begin() {
	s.reset()
	s.active = true
	s.push(gesture.Point{})
}

// Move records the translation p from the touch origin. A Move without a
// preceding Begin starts a touch implicitly.
func (s *Session) Move(p gesture.Point) Update {
	if !s.active {
		s.Begin()
	}

	s.push(p)
	if p.Magnitude() > s.maxOffset.Magnitude() {
		s.maxOffset = p
	}

	t := s.settings.Thresholds
	u := Update{
		Preview: gesture.Quantize(p, t.MinSwipeLength, s.aspect),
	}

	s.scratch = s.history.AppendTo(s.scratch[:0])
	if sense, ok := gesture.CircularDirection(s.scratch, s.settings.Live.CompletionTolerance, t.MinSwipeLength); ok {
		u.Circular = sense
		if s.live == gesture.NoSense {
			s.live = sense
			u.Fired = true
		}
	}
	return u
}

// End records the final translation and classifies the touch. The
// session is reset afterwards.
func (s *Session) End(p gesture.Point) Outcome {
	if !s.active {
		s.Begin()
	}

	if last := s.path[len(s.path)-1]; last != p {
		s.push(p)
		if p.Magnitude() > s.maxOffset.Magnitude() {
			s.maxOffset = p
		}
	}

	var out Outcome
	switch s.mode {
	case ModeOffset:
		out = s.classifyOffset(p)
	default:
		out = s.classifyFeatures()
	}
	out.LiveCircular = s.live
	out.Samples = len(s.path)

	s.reset()
	return out
}

// Cancel abandons the touch without producing a result.
func (s *Session) Cancel() {
	s.reset()
}

// Path returns a copy of the raw samples recorded so far.
func (s *Session) Path() []gesture.Point {
	return append([]gesture.Point(nil), s.path...)
}

func (s *Session) push(p gesture.Point) {
	if len(s.path) < MaxSamples {
		s.path = append(s.path, p)
	} else {
		s.path[len(s.path)-1] = p
	}
	s.history.Push(p)
}

func (s *Session) reset() {
	s.path = s.path[:0]
	s.history.Reset()
	s.maxOffset = gesture.Point{}
	s.live = gesture.NoSense
	s.active = false
}

func (s *Session) classifyFeatures() Outcome {
	t := s.settings.Thresholds
	result, features := gesture.Recognize(s.path, s.pre, t)

	out := Outcome{Result: result, Features: features}
	if sense, ok := gesture.CircularDirection(s.path, s.settings.Live.CompletionTolerance, t.MinSwipeLength); ok {
		out.PathCircular = sense
	}
	return out
}

// classifyOffset resolves a utility key touch. A circle needs the live
// detector to accept the recent history and the finger to have left the
// tap radius. Otherwise the touch is a return swipe when the finger went
// out far enough and came back close to the origin or ended up pointing
// elsewhere.
func (s *Session) classifyOffset(final gesture.Point) Outcome {
	t := s.settings.Thresholds
	out := Outcome{Features: gesture.Extract(s.pre.Preprocess(s.path))}

	maxDistance := s.maxOffset.Magnitude()

	s.scratch = s.history.AppendTo(s.scratch[:0])
	if sense, ok := gesture.CircularDirection(s.scratch, s.settings.Live.CompletionTolerance, t.MinSwipeLength); ok {
		out.PathCircular = sense
		if maxDistance >= t.MinSwipeLength {
			out.Result = gesture.Result{Kind: gesture.Circular, Sense: sense}
			return out
		}
	}

	maxDirection := gesture.Quantize(s.maxOffset, 0, s.aspect)
	finalDirection := gesture.Quantize(final, t.MinSwipeLength, s.aspect)

	cameBack := final.Magnitude() <= t.MinSwipeLength*t.FinalOffsetMultiplier || finalDirection != maxDirection

	switch {
	case maxDistance >= t.MinSwipeLength && cameBack && maxDirection != gesture.Center:
		out.Result = gesture.Result{Kind: gesture.ReturnSwipe, Direction: maxDirection}
	case finalDirection == gesture.Center:
		out.Result = gesture.Result{Kind: gesture.Tap}
	default:
		out.Result = gesture.Result{Kind: gesture.Swipe, Direction: finalDirection}
	}
	return out
}
