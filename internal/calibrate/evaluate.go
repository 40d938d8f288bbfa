package calibrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ayusman/keyflick/internal/capture"
	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
)

// Miss records a trace whose result differed from its label.
type Miss struct {
	ID   string         `json:"id"`
	Want gesture.Result `json:"want"`
	Got  gesture.Result `json:"got"`
}

// Report summarizes an evaluation run. Confusion is indexed by the
// expected kind, then the recognized kind.
type Report struct {
	Total     int                                   `json:"total"`
	Correct   int                                   `json:"correct"`
	Accuracy  float64                               `json:"accuracy"`
	Confusion map[gesture.Kind]map[gesture.Kind]int `json:"confusion"`
	Misses    []Miss                                `json:"misses"`
}

// Evaluate replays every trace through a fresh session built from
// settings and compares the outcome with its label. A result counts as
// correct only when kind, direction and sense all match.
func Evaluate(ctx context.Context, traces []Trace, settings config.Settings) (Report, error) {
	if err := settings.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid settings: %w", err)
	}

	report := Report{
		Confusion: make(map[gesture.Kind]map[gesture.Kind]int),
		Misses:    []Miss{},
	}

	for _, tr := range traces {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sess := session.New(settings, tr.AspectRatio, tr.Mode)
		outcomes, err := capture.Replay(ctx, capture.NewTraceSource(tr.Points), sess, 0)
		if err != nil {
			return report, fmt.Errorf("trace %s: %w", tr.ID, err)
		}
		if len(outcomes) != 1 {
			return report, fmt.Errorf("trace %s: expected one touch, got %d", tr.ID, len(outcomes))
		}

		got := outcomes[0].Result
		report.record(tr, got)
	}

	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}
	return report, nil
}

func (r *Report) record(tr Trace, got gesture.Result) {
	r.Total++

	row, ok := r.Confusion[tr.Want.Kind]
	if !ok {
		row = make(map[gesture.Kind]int)
		r.Confusion[tr.Want.Kind] = row
	}
	row[got.Kind]++

	if got == tr.Want {
		r.Correct++
		return
	}
	r.Misses = append(r.Misses, Miss{ID: tr.ID, Want: tr.Want, Got: got})
}

// KindAccuracy returns the share of traces labeled k that were recognized
// as k, and false when there were none.
func (r Report) KindAccuracy(k gesture.Kind) (float64, bool) {
	row := r.Confusion[k]
	total := 0
	for _, n := range row {
		total += n
	}
	if total == 0 {
		return 0, false
	}
	return float64(row[k]) / float64(total), true
}

// String renders the confusion matrix as an aligned table.
func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d/%d correct (%.1f%%)\n", r.Correct, r.Total, r.Accuracy*100)

	fmt.Fprintf(&b, "%-14s", "want \\ got")
	for _, k := range gesture.Kinds {
		fmt.Fprintf(&b, "%14s", k)
	}
	b.WriteString("\n")

	wants := make([]gesture.Kind, 0, len(r.Confusion))
	for k := range r.Confusion {
		wants = append(wants, k)
	}
	sort.Slice(wants, func(i, j int) bool { return wants[i] < wants[j] })

	for _, want := range wants {
		fmt.Fprintf(&b, "%-14s", want)
		for _, got := range gesture.Kinds {
			fmt.Fprintf(&b, "%14d", r.Confusion[want][got])
		}
		b.WriteString("\n")
	}
	return b.String()
}
