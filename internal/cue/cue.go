// Package cue delivers hold transitions and session summaries to the
// outside world: the log, a serial-attached buzzer or light, and a chat.
package cue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/monitoring"
)

// Kind distinguishes the notifications a Sink receives.
type Kind int

const (
	// KindEnter fires when the posture starts being held.
	KindEnter Kind = iota
	// KindExit fires when the hold is lost.
	KindExit
	// KindSummary fires once when a session ends.
	KindSummary
)

func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "enter"
	case KindExit:
		return "exit"
	case KindSummary:
		return "summary"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Summary describes a finished session.
type Summary struct {
	Start          time.Time
	End            time.Time
	FramesSeen     int
	FramesMeeting  int
	MeanConfidence float64
	PeakConfidence float64
}

// Event is one notification.
type Event struct {
	Kind      Kind
	SessionID string
	At        time.Time
	// Duration is the accumulated hold time when the event fired.
	Duration time.Duration
	// Confidence is the pose confidence behind an enter or exit, zero when
	// no pose was seen on that tick.
	Confidence float64
	// Summary is set for KindSummary only.
	Summary *Summary
}

// Sink receives events. Implementations must be safe for use from a single
// dispatching goroutine; they need not be safe for concurrent use.
type Sink interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// FromHoldEvent converts a tracker transition into a cue event. ok is false
// for ticks without a transition.
func FromHoldEvent(sessionID string, at time.Time, ev hold.Event) (Event, bool) {
	out := Event{SessionID: sessionID, At: at, Duration: ev.Duration}
	if ev.Pose != nil {
		out.Confidence = ev.Pose.Confidence
	}
	switch ev.Transition {
	case hold.Entered:
		out.Kind = KindEnter
	case hold.Exited:
		out.Kind = KindExit
	default:
		return Event{}, false
	}
	return out, true
}

// Dispatcher fans events out to a fixed set of sinks.
type Dispatcher struct {
	sinks []Sink
	now   func() time.Time
}

// NewDispatcher returns a dispatcher over sinks. Nil sinks are skipped.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{now: time.Now}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Sinks returns the configured sink names in order.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch delivers ev to every sink. A failing sink does not stop delivery
// to the others; all failures are logged and returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Notify(ctx, ev); err != nil {
			monitoring.L().Error("cue sink failed",
				zap.String("sink", s.Name()),
				zap.Stringer("kind", ev.Kind),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Follow subscribes to t and dispatches every transition until ctx is
// cancelled or the tracker closes its subscribers.
func (d *Dispatcher) Follow(ctx context.Context, t *hold.Tracker, sessionID string) error {
	id, events := t.Subscribe()
	defer t.Unsubscribe(id)
	return d.Forward(ctx, events, sessionID)
}

// Forward dispatches every transition received on events until ctx is
// cancelled or events is closed.
func (d *Dispatcher) Forward(ctx context.Context, events <-chan hold.Event, sessionID string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if out, ok := FromHoldEvent(sessionID, d.now(), ev); ok {
				_ = d.Dispatch(ctx, out)
			}
		}
	}
}
