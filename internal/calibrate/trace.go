// Package calibrate measures recognizer accuracy over labeled traces.
package calibrate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
)

// Trace is a labeled touch path ready for evaluation.
type Trace struct {
	ID          string
	Want        gesture.Result
	Mode        session.Mode
	AspectRatio float64
	Points      []gesture.Point
}

// Document is the JSON form of a recorded trace. Label is either a full
// result such as "swipe:up_left", or a kind with the qualifier in
// Direction.
type Document struct {
	ID          string          `json:"id,omitempty"`
	Label       string          `json:"label"`
	Direction   string          `json:"direction,omitempty"`
	Mode        string          `json:"mode,omitempty"`
	AspectRatio float64         `json:"aspect_ratio,omitempty"`
	Points      []gesture.Point `json:"points"`
}

// ResultLabel returns the label in Result.String form.
func (d Document) ResultLabel() string {
	if d.Direction == "" || strings.Contains(d.Label, ":") {
		return d.Label
	}
	return d.Label + ":" + d.Direction
}

// ParseDocument decodes raw without validating the label.
func ParseDocument(raw json.RawMessage) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse trace: %w", err)
	}
	if len(doc.Points) == 0 {
		return Document{}, fmt.Errorf("trace has no points")
	}
	if doc.AspectRatio < 0 {
		return Document{}, fmt.Errorf("aspect ratio must be positive, got %v", doc.AspectRatio)
	}
	if _, err := session.ParseMode(doc.Mode); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ParseTrace decodes and validates a labeled trace document.
func ParseTrace(raw json.RawMessage) (Trace, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return Trace{}, err
	}
	return newTrace(doc.ID, doc.ResultLabel(), doc.Mode, doc.AspectRatio, doc.Points)
}

// FromStore converts a stored trace. Unlabeled traces are rejected.
func FromStore(t *store.Trace) (Trace, error) {
	return newTrace(t.ID, t.Label, t.Mode, t.AspectRatio, t.Points)
}

func newTrace(id, label, mode string, aspect float64, points []gesture.Point) (Trace, error) {
	if label == "" {
		return Trace{}, fmt.Errorf("trace %s is not labeled", id)
	}

	want, err := gesture.ParseResult(label)
	if err != nil {
		return Trace{}, fmt.Errorf("trace %s: invalid label: %w", id, err)
	}

	m, err := session.ParseMode(mode)
	if err != nil {
		return Trace{}, fmt.Errorf("trace %s: %w", id, err)
	}

	if aspect == 0 {
		aspect = 1
	}

	return Trace{
		ID:          id,
		Want:        want,
		Mode:        m,
		AspectRatio: aspect,
		Points:      points,
	}, nil
}
