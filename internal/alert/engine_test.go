package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"safeband/internal/geofence/models"
	id "safeband/pkg/domain"
)

// fakeClock drives debounce timers manually so tests never wait on real
// time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock and fires due timers. Callbacks run outside
// the clock lock, matching real time.AfterFunc behavior.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.deadline.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

type EngineSuite struct {
	suite.Suite
	clock  *fakeClock
	engine *Engine
	key    Key
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s.engine = NewEngine(WithClock(s.clock))
	s.key = Key{ProfileID: id.ProfileID(uuid.New()), ZoneID: id.ZoneID(uuid.New())}
	s.ctx = context.Background()
}

func (s *EngineSuite) sample() models.Position {
	return models.Position{Timestamp: s.clock.Now()}
}

// drainEvents empties the dispatch buffer.
func (s *EngineSuite) drainEvents() []Event {
	var events []Event
	for {
		select {
		case event := <-s.engine.events:
			events = append(events, event)
		default:
			return events
		}
	}
}

func (s *EngineSuite) TestUntrackedIsSafe() {
	s.Equal(StateSafe, s.engine.StateOf(s.key))
}

func (s *EngineSuite) TestExitStartsPending() {
	state := s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.Equal(StatePending, state)
	s.Empty(s.drainEvents(), "no alert before the delay elapses")
}

// TestReentryCancelsTimer covers the debounce scenario: exit at 600 m
// starts the timer, re-entry 30 s later cancels it, and the original
// deadline passes without an alert.
func (s *EngineSuite) TestReentryCancelsTimer() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())

	s.clock.Advance(30 * time.Second)
	state := s.engine.Observe(s.ctx, s.key, time.Minute, true, s.sample())
	s.Equal(StateSafe, state)

	s.clock.Advance(time.Minute)
	s.Equal(StateSafe, s.engine.StateOf(s.key))
	s.Empty(s.drainEvents(), "canceled excursion must never alert")
}

func (s *EngineSuite) TestTimerElapseAlertsExactlyOnce() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())

	s.clock.Advance(time.Minute)
	s.Equal(StateAlerting, s.engine.StateOf(s.key))

	events := s.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventExitAlert, events[0].Event)
	s.Equal(s.key.ProfileID, events[0].ProfileID)
	s.Equal(s.key.ZoneID, events[0].ZoneID)

	// Further time and further outside samples add nothing.
	s.clock.Advance(10 * time.Minute)
	state := s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.Equal(StateAlerting, state)
	s.Empty(s.drainEvents())
}

func (s *EngineSuite) TestPendingKeepsSingleTimer() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())

	// More outside samples while pending must not restart the delay.
	s.clock.Advance(45 * time.Second)
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())

	s.clock.Advance(15 * time.Second)
	s.Equal(StateAlerting, s.engine.StateOf(s.key))
	s.Len(s.drainEvents(), 1)
}

func (s *EngineSuite) TestReentryClearsAlert() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.clock.Advance(time.Minute)
	s.Require().Equal(StateAlerting, s.engine.StateOf(s.key))
	s.drainEvents()

	state := s.engine.Observe(s.ctx, s.key, time.Minute, true, s.sample())
	s.Equal(StateSafe, state)

	events := s.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventCleared, events[0].Event)
}

func (s *EngineSuite) TestDismiss() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.clock.Advance(time.Minute)
	s.drainEvents()

	state := s.engine.Dismiss(s.ctx, s.key)
	s.Equal(StateSafe, state)

	events := s.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventCleared, events[0].Event)

	// Dismissing again is a no-op.
	s.Equal(StateSafe, s.engine.Dismiss(s.ctx, s.key))
	s.Empty(s.drainEvents())
}

func (s *EngineSuite) TestDismissWhilePendingDoesNotClear() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())

	state := s.engine.Dismiss(s.ctx, s.key)
	s.Equal(StatePending, state, "dismiss only clears an active alert")
	s.Empty(s.drainEvents())

	s.clock.Advance(time.Minute)
	s.Equal(StateAlerting, s.engine.StateOf(s.key))
}

// TestResetCancelsPendingTimer covers zone disablement during an
// excursion: the scheduled timer must die with the pair, never firing
// an alert for a zone that was turned off.
func (s *EngineSuite) TestResetCancelsPendingTimer() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.Require().Equal(StatePending, s.engine.StateOf(s.key))

	s.engine.Reset(s.ctx, s.key)
	s.Equal(StateSafe, s.engine.StateOf(s.key))

	s.clock.Advance(time.Minute)
	s.Equal(StateSafe, s.engine.StateOf(s.key))
	s.Empty(s.drainEvents(), "a reset pair must never alert")
}

func (s *EngineSuite) TestResetClearsRaisedAlert() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.clock.Advance(time.Minute)
	s.Require().Equal(StateAlerting, s.engine.StateOf(s.key))
	s.drainEvents()

	s.engine.Reset(s.ctx, s.key)
	s.Equal(StateSafe, s.engine.StateOf(s.key))

	events := s.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventCleared, events[0].Event)

	// Resetting an untracked pair is a no-op.
	s.engine.Reset(s.ctx, s.key)
	s.Empty(s.drainEvents())
}

func (s *EngineSuite) TestStopTrackingCancelsTimers() {
	otherZone := Key{ProfileID: s.key.ProfileID, ZoneID: id.ZoneID(uuid.New())}
	otherProfile := Key{ProfileID: id.ProfileID(uuid.New()), ZoneID: id.ZoneID(uuid.New())}

	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())
	s.engine.Observe(s.ctx, otherZone, time.Minute, false, s.sample())
	s.engine.Observe(s.ctx, otherProfile, time.Minute, false, s.sample())

	removed := s.engine.StopTracking(s.ctx, s.key.ProfileID)
	s.Equal(2, removed)

	// Deadlines of the torn-down pairs pass without effect.
	s.clock.Advance(time.Minute)
	s.Equal(StateSafe, s.engine.StateOf(s.key))
	s.Equal(StateSafe, s.engine.StateOf(otherZone))
	s.Equal(StateAlerting, s.engine.StateOf(otherProfile))

	events := s.drainEvents()
	s.Require().Len(events, 1, "only the surviving profile alerts")
	s.Equal(otherProfile.ProfileID, events[0].ProfileID)
}

// TestStaleTimerFireIsNoOp simulates a timer callback that was already
// scheduled when its excursion got canceled; the generation check makes
// it a no-op.
func (s *EngineSuite) TestStaleTimerFireIsNoOp() {
	s.engine.Observe(s.ctx, s.key, time.Minute, false, s.sample())

	s.engine.mu.Lock()
	generation := s.engine.entries[s.key].generation
	s.engine.mu.Unlock()

	s.engine.Observe(s.ctx, s.key, time.Minute, true, s.sample())

	s.engine.fire(s.key, generation)
	s.Equal(StateSafe, s.engine.StateOf(s.key))
	s.Empty(s.drainEvents())
}

func (s *EngineSuite) TestRunDeliversToSinks() {
	var mu sync.Mutex
	var delivered []Event
	sink := sinkFunc(func(_ context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, event)
		return nil
	})

	engine := NewEngine(WithClock(s.clock), WithSink(sink))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()

	engine.Observe(ctx, s.key, time.Minute, false, s.sample())
	s.clock.Advance(time.Minute)

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1 && delivered[0].Event == EventExitAlert
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

type sinkFunc func(ctx context.Context, event Event) error

func (f sinkFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }
