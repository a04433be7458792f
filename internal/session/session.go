// Package session runs one tracking session: it classifies incoming frames,
// drives the hold tracker from a clock, forwards transitions to cue sinks and
// produces a summary when the session is stopped.
package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banshee-data/plank.report/internal/cue"
	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/pose"
	"github.com/banshee-data/plank.report/internal/timeutil"
	"github.com/banshee-data/plank.report/internal/units"
)

// ErrNoDetectors is returned by New when no posture detector is configured.
var ErrNoDetectors = errors.New("session needs at least one detector")

// Config configures a Session.
type Config struct {
	Hold      hold.Config
	Detectors []pose.Detector
	// Clock drives the tick loop and timestamps; nil uses the real clock.
	Clock timeutil.Clock
	// Dispatcher receives transitions while Run is active and the summary
	// on Stop; nil disables notifications.
	Dispatcher *cue.Dispatcher
}

// Summary describes a finished session.
type Summary struct {
	ID             string        `json:"id"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Duration       time.Duration `json:"duration"`
	Formatted      string        `json:"formatted"`
	FramesSeen     int           `json:"frames_seen"`
	FramesMeeting  int           `json:"frames_meeting"`
	MeanConfidence float64       `json:"mean_confidence"`
	PeakConfidence float64       `json:"peak_confidence"`
}

// Status is a point-in-time view of a running session.
type Status struct {
	ID        string
	State     hold.State
	Duration  time.Duration
	Formatted string
	// Pose is the pose the tracker is holding on, nil while idle.
	Pose *pose.Pose
	// LastPose is the classification of the most recent frame.
	LastPose   *pose.Pose
	FramesSeen int
	Stopped    bool
}

// Session owns the detectors and tracker for one tracking run.
type Session struct {
	id         string
	clock      timeutil.Clock
	detectors  []pose.Detector
	tracker    *hold.Tracker
	dispatcher *cue.Dispatcher
	start      time.Time

	mu            sync.Mutex
	framesSeen    int
	framesMeeting int
	confSum       float64
	confCount     int
	confPeak      float64
	lastPose      *pose.Pose
	summary       *Summary

	stopOnce sync.Once
	stopped  chan struct{}
}

// New starts a session. The session id is a random UUID.
func New(cfg Config) (*Session, error) {
	if len(cfg.Detectors) == 0 {
		return nil, ErrNoDetectors
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = cue.NewDispatcher()
	}
	s := &Session{
		id:         uuid.NewString(),
		clock:      clock,
		detectors:  cfg.Detectors,
		tracker:    hold.NewTracker(cfg.Hold),
		dispatcher: dispatcher,
		start:      clock.Now(),
		stopped:    make(chan struct{}),
	}
	monitoring.L().Info("session started",
		zap.String("session", s.id),
		zap.Duration("tick_interval", s.tracker.Config().TickInterval),
		zap.Duration("detection_threshold", s.tracker.Config().DetectionThreshold))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Tracker returns the session's hold tracker.
func (s *Session) Tracker() *hold.Tracker { return s.tracker }

// HandleFrame classifies kps, records the result as the tracker's latest
// observation and returns it. A nil result means nothing was detected.
func (s *Session) HandleFrame(kps pose.Keypoints) *pose.Pose {
	p := pose.Select(s.detectors, kps)

	s.mu.Lock()
	s.framesSeen++
	s.lastPose = p
	if p != nil {
		s.confSum += p.Confidence
		s.confCount++
		s.confPeak = math.Max(s.confPeak, p.Confidence)
		if p.MeetsPosture() {
			s.framesMeeting++
		}
	}
	s.mu.Unlock()

	s.tracker.Observe(p)
	return p
}

// HandleWireFrame is HandleFrame for a decoded wire frame.
func (s *Session) HandleWireFrame(f frames.Frame) *pose.Pose {
	return s.HandleFrame(f.Keypoints())
}

// Tick advances the tracker once using the latest observation.
func (s *Session) Tick() hold.TickResult {
	return s.tracker.Tick()
}

// Run ticks the tracker every tick interval and forwards transitions to the
// dispatcher. It returns nil after Stop and ctx.Err() on cancellation.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id, events := s.tracker.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.dispatcher.Forward(ctx, events, s.id)
	}()
	defer wg.Wait()
	defer s.tracker.Unsubscribe(id)

	ticker := s.clock.NewTicker(s.tracker.Config().TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return nil
		case <-ticker.C():
			res := s.Tick()
			if res.Transition != hold.None {
				monitoring.L().Info("hold transition",
					zap.String("session", s.id),
					zap.Stringer("transition", res.Transition),
					zap.String("duration", units.FormatDuration(res.Duration)))
			}
		}
	}
}

// ResetDuration zeroes the accumulated hold time without changing state.
func (s *Session) ResetDuration() {
	s.tracker.ResetDuration()
	monitoring.L().Info("duration reset", zap.String("session", s.id))
}

// Status returns the current state of the session.
func (s *Session) Status() Status {
	snap := s.tracker.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:         s.id,
		State:      snap.State,
		Duration:   snap.Duration,
		Formatted:  units.FormatDuration(snap.Duration),
		Pose:       snap.Pose,
		LastPose:   s.lastPose,
		FramesSeen: s.framesSeen,
		Stopped:    s.summary != nil,
	}
}

// Stop ends the session, hands the summary to the dispatcher and returns it.
// Later calls return the same summary.
func (s *Session) Stop(ctx context.Context) Summary {
	s.stopOnce.Do(func() {
		snap := s.tracker.Snapshot()

		s.mu.Lock()
		sum := Summary{
			ID:            s.id,
			Start:         s.start,
			End:           s.clock.Now(),
			Duration:      snap.Duration,
			Formatted:     units.FormatDuration(snap.Duration),
			FramesSeen:    s.framesSeen,
			FramesMeeting: s.framesMeeting,
		}
		if s.confCount > 0 {
			sum.MeanConfidence = s.confSum / float64(s.confCount)
			sum.PeakConfidence = s.confPeak
		}
		s.summary = &sum
		s.mu.Unlock()

		close(s.stopped)
		s.tracker.Close()

		_ = s.dispatcher.Dispatch(ctx, cue.Event{
			Kind:      cue.KindSummary,
			SessionID: s.id,
			At:        sum.End,
			Duration:  sum.Duration,
			Summary: &cue.Summary{
				Start:          sum.Start,
				End:            sum.End,
				FramesSeen:     sum.FramesSeen,
				FramesMeeting:  sum.FramesMeeting,
				MeanConfidence: sum.MeanConfidence,
				PeakConfidence: sum.PeakConfidence,
			},
		})
		monitoring.L().Info("session stopped",
			zap.String("session", s.id),
			zap.String("held", sum.Formatted),
			zap.Int("frames_seen", sum.FramesSeen))
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.summary
}

// Done is closed once Stop has been called.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}
