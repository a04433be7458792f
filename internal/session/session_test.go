package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plank.report/internal/cue"
	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/pose"
	"github.com/banshee-data/plank.report/internal/testutil"
	"github.com/banshee-data/plank.report/internal/timeutil"
)

var epoch = time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	events []cue.Event
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Notify(_ context.Context, ev cue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) kinds() []cue.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]cue.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recordingSink) last() cue.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newSession(t *testing.T, clock timeutil.Clock, sinks ...cue.Sink) *Session {
	t.Helper()
	monitoring.Use(nil)
	s, err := New(Config{
		Hold:       hold.DefaultConfig(),
		Detectors:  []pose.Detector{pose.NewPlankDetector(pose.DefaultMinJointConfidence)},
		Clock:      clock,
		Dispatcher: cue.NewDispatcher(sinks...),
	})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDetector(t *testing.T) {
	_, err := New(Config{Hold: hold.DefaultConfig()})
	assert.ErrorIs(t, err, ErrNoDetectors)
}

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := newSession(t, nil)
	b := newSession(t, nil)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestHandleFrame(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))

	tests := []struct {
		name     string
		kps      pose.Keypoints
		wantNil  bool
		wantMeet bool
	}{
		{"plank", testutil.PlankKeypoints(), false, true},
		{"standing", testutil.StandingKeypoints(), false, false},
		{"no torso", testutil.EmptyKeypoints(), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := s.HandleFrame(tt.kps)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, pose.PosturePlank, p.Posture)
			assert.Equal(t, tt.wantMeet, p.MeetsPosture())
			assert.Same(t, p, s.Status().LastPose)
		})
	}
	assert.Equal(t, 3, s.Status().FramesSeen)
	assert.Nil(t, s.Status().LastPose)
}

func TestHandleWireFrame(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))
	f, err := frames.Decode([]byte(testutil.FrameJSON(t, testutil.PlankKeypoints())))
	require.NoError(t, err)

	p := s.HandleWireFrame(f)
	require.NotNil(t, p)
	assert.True(t, p.MeetsPosture())

	res := s.Tick()
	assert.Equal(t, hold.Entered, res.Transition)
	assert.Equal(t, time.Second, res.Duration)
}

func TestTick_ConsumesLatestObservation(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))

	s.HandleFrame(testutil.StandingKeypoints())
	s.HandleFrame(testutil.PlankKeypoints())
	assert.Equal(t, hold.Entered, s.Tick().Transition)

	// No new frame: the grace window keeps the hold alive for one tick.
	res := s.Tick()
	assert.Equal(t, hold.None, res.Transition)
	assert.Equal(t, hold.Holding, res.State)
	assert.Equal(t, 2*time.Second, res.Duration)

	res = s.Tick()
	assert.Equal(t, hold.Exited, res.Transition)
	assert.Equal(t, 2*time.Second, res.Duration)

	st := s.Status()
	assert.Equal(t, hold.Idle, st.State)
	assert.Equal(t, "00:02", st.Formatted)
}

func TestResetDuration(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))
	s.HandleFrame(testutil.PlankKeypoints())
	s.Tick()
	s.ResetDuration()

	st := s.Status()
	assert.Equal(t, hold.Holding, st.State)
	assert.Zero(t, st.Duration)
	assert.Equal(t, "00:00", st.Formatted)
}

func TestStop_Summary(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	sink := &recordingSink{}
	s := newSession(t, clock, sink)

	s.HandleFrame(testutil.PlankKeypoints())
	s.Tick()
	s.HandleFrame(testutil.StandingKeypoints())
	s.HandleFrame(testutil.EmptyKeypoints())
	s.Tick()
	clock.Advance(90 * time.Second)

	sum := s.Stop(context.Background())
	assert.Equal(t, s.ID(), sum.ID)
	assert.Equal(t, epoch, sum.Start)
	assert.Equal(t, epoch.Add(90*time.Second), sum.End)
	assert.Equal(t, 2*time.Second, sum.Duration)
	assert.Equal(t, "00:02", sum.Formatted)
	assert.Equal(t, 3, sum.FramesSeen)
	assert.Equal(t, 1, sum.FramesMeeting)
	assert.InDelta(t, 11.0/18.0, sum.MeanConfidence, 1e-9)
	assert.Equal(t, 1.0, sum.PeakConfidence)

	require.Equal(t, []cue.Kind{cue.KindSummary}, sink.kinds())
	ev := sink.last()
	require.NotNil(t, ev.Summary)
	assert.Equal(t, s.ID(), ev.SessionID)
	assert.Equal(t, 3, ev.Summary.FramesSeen)
	assert.Equal(t, 2*time.Second, ev.Duration)

	// Idempotent.
	clock.Advance(time.Minute)
	assert.Equal(t, sum, s.Stop(context.Background()))
	assert.Len(t, sink.kinds(), 1)
	assert.True(t, s.Status().Stopped)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestStop_SummaryOverManyFrames(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))
	for i := 0; i < 1000; i++ {
		s.HandleFrame(testutil.StandingKeypoints())
		if i%4 == 0 {
			s.HandleFrame(testutil.PlankKeypoints())
		}
		s.HandleFrame(testutil.EmptyKeypoints())
	}

	sum := s.Stop(context.Background())
	assert.Equal(t, 2250, sum.FramesSeen)
	assert.Equal(t, 250, sum.FramesMeeting)
	// 1000 standing frames at 4/18 and 250 plank frames at 1.
	assert.InDelta(t, (1000*4.0/18.0+250)/1250, sum.MeanConfidence, 1e-9)
	assert.Equal(t, 1.0, sum.PeakConfidence)
}

func TestStop_NoFrames(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))
	sum := s.Stop(context.Background())
	assert.Zero(t, sum.FramesSeen)
	assert.Zero(t, sum.MeanConfidence)
	assert.Zero(t, sum.PeakConfidence)
}

func TestRun_TicksAndDispatches(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	sink := &recordingSink{}
	s := newSession(t, clock, sink)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	ticker := clock.WaitForTicker(2 * time.Second)
	require.NotNil(t, ticker, "Run did not create a ticker")

	tick := func(n uint64) {
		ticker.Trigger(clock.Now())
		require.Eventually(t, func() bool {
			return s.Tracker().Snapshot().Ticks == n
		}, 2*time.Second, 5*time.Millisecond)
	}

	s.HandleFrame(testutil.PlankKeypoints())
	tick(1)
	require.Eventually(t, func() bool {
		k := sink.kinds()
		return len(k) == 1 && k[0] == cue.KindEnter
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, sink.last().Confidence)

	tick(2)
	tick(3)
	require.Eventually(t, func() bool { return len(sink.kinds()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, cue.KindExit, sink.last().Kind)
	assert.Equal(t, 2*time.Second, sink.last().Duration)

	s.Stop(context.Background())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.True(t, ticker.Stopped())
	assert.Equal(t, []cue.Kind{cue.KindEnter, cue.KindExit, cue.KindSummary}, sink.kinds())
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	s := newSession(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.NotNil(t, clock.WaitForTicker(2*time.Second))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_AfterStop(t *testing.T) {
	s := newSession(t, timeutil.NewMockClock(epoch))
	s.Stop(context.Background())
	assert.NoError(t, s.Run(context.Background()))
}
