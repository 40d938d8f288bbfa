package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
)

// ErrIncompleteTouch is returned when a source ends while a touch is
// still down.
var ErrIncompleteTouch = errors.New("source ended during a touch")

// Player drives a session from a Source.
type Player struct {
	// Interval paces events. Zero replays as fast as possible.
	Interval time.Duration
	// OnUpdate, if set, receives the live feedback for every move.
	OnUpdate func(Event, session.Update)
	// OnOutcome, if set, receives each finished touch.
	OnOutcome func(session.Outcome)
	// Discard stops Play from collecting outcomes. Long-lived sources
	// set it and consume results through OnOutcome.
	Discard bool
}

// Replay feeds every event from src into sess and returns the outcomes of
// the touches that ended. When ctx is cancelled the touch in progress is
// cancelled and the context error returned with the outcomes so far.
func Replay(ctx context.Context, src Source, sess *session.Session, interval time.Duration) ([]session.Outcome, error) {
	return Player{Interval: interval}.Play(ctx, src, sess)
}

// Play is Replay with the player's callbacks.
func (p Player) Play(ctx context.Context, src Source, sess *session.Session) ([]session.Outcome, error) {
	var ticks <-chan time.Time
	if p.Interval > 0 {
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var (
		outcomes []session.Outcome
		origin   gesture.Point
	)

	for {
		if ticks != nil {
			select {
			case <-ctx.Done():
				sess.Cancel()
				return outcomes, ctx.Err()
			case <-ticks:
			}
		} else if err := ctx.Err(); err != nil {
			sess.Cancel()
			return outcomes, err
		}

		e, err := src.Next()
		if errors.Is(err, io.EOF) {
			if sess.Active() {
				sess.Cancel()
				return outcomes, ErrIncompleteTouch
			}
			return outcomes, nil
		}
		if err != nil {
			sess.Cancel()
			return outcomes, fmt.Errorf("failed to read event: %w", err)
		}

		switch e.Type {
		case EventBegin:
			origin = e.Point()
			sess.Begin()
		case EventMove:
			u := sess.Move(e.Point().Sub(origin))
			if p.OnUpdate != nil {
				p.OnUpdate(e, u)
			}
		case EventEnd:
			out := sess.End(e.Point().Sub(origin))
			if !p.Discard {
				outcomes = append(outcomes, out)
			}
			if p.OnOutcome != nil {
				p.OnOutcome(out)
			}
			origin = gesture.Point{}
		case EventCancel:
			sess.Cancel()
			origin = gesture.Point{}
		}
	}
}
