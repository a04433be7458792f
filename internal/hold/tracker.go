package hold

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/plank.report/internal/pose"
)

// State is the detection state of a Tracker.
type State int

const (
	Idle State = iota
	Holding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transition is the edge, if any, crossed by a tick.
type Transition int

const (
	None Transition = iota
	Entered
	Exited
)

func (t Transition) String() string {
	switch t {
	case None:
		return "none"
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Config holds the timing parameters of a Tracker.
type Config struct {
	// TickInterval is the fixed period between OnTick calls. Every tick spent
	// holding adds exactly this much to the accumulated duration.
	TickInterval time.Duration
	// DetectionThreshold is how long Holding survives without a qualifying
	// pose.
	DetectionThreshold time.Duration
}

// DefaultConfig returns a one second tick with a two second threshold.
func DefaultConfig() Config {
	return Config{
		TickInterval:       time.Second,
		DetectionThreshold: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.DetectionThreshold <= 0 {
		c.DetectionThreshold = d.DetectionThreshold
	}
	return c
}

// TickResult is what a single tick produced.
type TickResult struct {
	State      State
	Pose       *pose.Pose
	Duration   time.Duration
	Transition Transition
}

// Event is published to subscribers whenever a tick crosses an edge.
type Event struct {
	Transition Transition
	State      State
	Pose       *pose.Pose
	Duration   time.Duration
	// Tick is the 1-based index of the tick that produced the event.
	Tick uint64
}

// Snapshot is a read-only copy of a Tracker's state.
type Snapshot struct {
	State    State
	Pose     *pose.Pose
	Duration time.Duration
	Ticks    uint64
	// Elapsed is the tracker's own notion of time: Ticks * TickInterval.
	Elapsed time.Duration
	// LastSatisfied is the tick time at which a qualifying pose was last
	// seen. It is only meaningful while HasLastSatisfied is true.
	LastSatisfied    time.Duration
	HasLastSatisfied bool
}

// Tracker is the hold state machine. All methods are safe for concurrent use;
// observations and ticks are serialised on a single mutex.
type Tracker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	current       *pose.Pose
	duration      time.Duration
	now           time.Duration
	lastSatisfied time.Duration
	hasLast       bool
	latest        *pose.Pose
	ticks         uint64

	subscriberMu sync.Mutex
	subscribers  map[int]chan Event
	nextID       int
}

// NewTracker returns an Idle tracker. Zero fields in cfg take their defaults.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:         cfg.withDefaults(),
		subscribers: make(map[int]chan Event),
	}
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Observe records p as the latest classification. Only the most recent
// observation before a tick is considered; nil means nothing was detected.
func (t *Tracker) Observe(p *pose.Pose) {
	t.mu.Lock()
	t.latest = p
	t.mu.Unlock()
}

// Tick evaluates the latest observation and then clears it, so a feed that
// stalls between ticks counts as no pose.
func (t *Tracker) Tick() TickResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.latest
	t.latest = nil
	return t.step(p)
}

// OnTick advances the tracker by one tick interval using p as the tick's
// classification, ignoring any pending observation.
func (t *Tracker) OnTick(p *pose.Pose) TickResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = nil
	return t.step(p)
}

// step advances and publishes under t.mu, so concurrent tickers deliver
// events in tick order. publish never blocks.
func (t *Tracker) step(p *pose.Pose) TickResult {
	res, ev, emit := t.advance(p)
	if emit {
		t.publish(ev)
	}
	return res
}

// advance applies the transition rules. t.mu must be held.
func (t *Tracker) advance(p *pose.Pose) (TickResult, Event, bool) {
	t.ticks++
	t.now += t.cfg.TickInterval
	meets := p.MeetsPosture()
	transition := None

	switch t.state {
	case Idle:
		if meets {
			t.state = Holding
			t.current = p
			t.lastSatisfied = t.now
			t.hasLast = true
			t.duration += t.cfg.TickInterval
			transition = Entered
		}
	case Holding:
		if meets {
			t.lastSatisfied = t.now
		}
		if p != nil {
			t.current = p
		}
		if t.now-t.lastSatisfied >= t.cfg.DetectionThreshold {
			t.state = Idle
			t.current = nil
			t.lastSatisfied = 0
			t.hasLast = false
			transition = Exited
		} else {
			t.duration += t.cfg.TickInterval
		}
	}

	res := TickResult{
		State:      t.state,
		Pose:       t.current,
		Duration:   t.duration,
		Transition: transition,
	}
	ev := Event{
		Transition: transition,
		State:      t.state,
		Pose:       p,
		Duration:   t.duration,
		Tick:       t.ticks,
	}
	return res, ev, transition != None
}

// ResetDuration zeroes the accumulated duration without touching the state.
func (t *Tracker) ResetDuration() {
	t.mu.Lock()
	t.duration = 0
	t.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		State:            t.state,
		Pose:             t.current,
		Duration:         t.duration,
		Ticks:            t.ticks,
		Elapsed:          t.now,
		LastSatisfied:    t.lastSatisfied,
		HasLastSatisfied: t.hasLast,
	}
}

// Subscribe returns a channel that receives every transition event. The
// channel is buffered; a subscriber that falls behind misses events rather
// than stalling the tick.
func (t *Tracker) Subscribe() (int, <-chan Event) {
	ch := make(chan Event, 16)
	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (t *Tracker) Unsubscribe(id int) {
	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	if ch, ok := t.subscribers[id]; ok {
		close(ch)
		delete(t.subscribers, id)
	}
}

// Close closes every subscription.
func (t *Tracker) Close() {
	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	for id, ch := range t.subscribers {
		close(ch)
		delete(t.subscribers, id)
	}
}

func (t *Tracker) publish(ev Event) {
	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	for _, ch := range t.subscribers {
		select {
		case ch <- ev:
		default:
			// drop rather than block the tick
		}
	}
}
