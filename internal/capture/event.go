// Package capture turns recorded or streamed touch events into session
// input.
package capture

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ayusman/keyflick/internal/gesture"
)

// EventType is the phase of a touch event.
type EventType string

const (
	EventBegin  EventType = "begin"
	EventMove   EventType = "move"
	EventEnd    EventType = "end"
	EventCancel EventType = "cancel"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventBegin, EventMove, EventEnd, EventCancel:
		return true
	}
	return false
}

// Event is one touch sample. Begin carries the touch-down position;
// move and end positions are made relative to it during replay.
type Event struct {
	Type EventType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

// Point returns the event position.
func (e Event) Point() gesture.Point {
	return gesture.Point{X: e.X, Y: e.Y}
}

// UnmarshalJSON rejects unknown event types.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return fmt.Errorf("unknown event type %q", p.Type)
	}
	*e = Event(p)
	return nil
}

// Source yields touch events in order. Next returns io.EOF once the
// source is exhausted.
type Source interface {
	Next() (Event, error)
}

// TraceSource plays a recorded path back as a single touch.
type TraceSource struct {
	events []Event
	index  int
}

// NewTraceSource returns a source emitting begin at the first point,
// a move for every inner point and end at the last point. An empty path
// emits nothing.
func NewTraceSource(points []gesture.Point) *TraceSource {
	s := &TraceSource{}
	if len(points) == 0 {
		return s
	}

	s.events = make([]Event, 0, len(points)+1)
	s.events = append(s.events, Event{Type: EventBegin, X: points[0].X, Y: points[0].Y})
	if len(points) > 2 {
		for _, p := range points[1 : len(points)-1] {
			s.events = append(s.events, Event{Type: EventMove, X: p.X, Y: p.Y})
		}
	}
	last := points[len(points)-1]
	s.events = append(s.events, Event{Type: EventEnd, X: last.X, Y: last.Y})
	return s
}

// Next returns the next event or io.EOF.
func (s *TraceSource) Next() (Event, error) {
	if s.index >= len(s.events) {
		return Event{}, io.EOF
	}
	e := s.events[s.index]
	s.index++
	return e, nil
}

// Rewind restarts playback from the first event.
func (s *TraceSource) Rewind() {
	s.index = 0
}
