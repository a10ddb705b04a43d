// Package alert implements the per-(profile, zone) exit-alert debounce
// state machine.
//
// Each tracked pair owns a three-state machine {SAFE, PENDING,
// ALERTING}. A zone exit starts a single cancelable delay timer;
// re-entry before it elapses cancels it and no alert is ever raised for
// that excursion. When the timer elapses the pair moves to ALERTING
// exactly once and an EXIT_ALERT event is dispatched to the configured
// sinks.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	alertmetrics "safeband/internal/alert/metrics"
	"safeband/internal/geofence/models"
	id "safeband/pkg/domain"
)

// State is the debounce state of one (profile, zone) pair.
type State string

const (
	StateSafe     State = "SAFE"
	StatePending  State = "PENDING"
	StateAlerting State = "ALERTING"
)

// EventType is the notification event kind delivered to sinks.
type EventType string

const (
	EventExitAlert EventType = "EXIT_ALERT"
	EventCleared   EventType = "CLEARED"
)

// Event is what the notification sinks receive.
type Event struct {
	ProfileID id.ProfileID `json:"profile_id"`
	ZoneID    id.ZoneID    `json:"zone_id"`
	Event     EventType    `json:"event"`
	At        time.Time    `json:"at"`
}

// Sink receives alert events. Delivery mechanics (push, UI banner) are
// the sink's concern, not the engine's.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// Key identifies one debounce state machine.
type Key struct {
	ProfileID id.ProfileID
	ZoneID    id.ZoneID
}

// entry is the transient runtime state for one key. It exists from the
// first observed sample until tracking stops; it is never persisted.
type entry struct {
	state      State
	timer      Timer
	generation uint64
	lastSample models.Position
}

// Engine owns all debounce state machines. A single mutex serializes
// every state update (new sample, timer fire, dismissal, teardown);
// updates are O(1) and never block on I/O, so one lock satisfies the
// single-writer discipline without per-key bookkeeping. Event delivery
// is decoupled through a buffered channel drained by Run.
type Engine struct {
	mu      sync.Mutex
	entries map[Key]*entry

	events  chan Event
	sinks   []Sink
	clock   Clock
	logger  *slog.Logger
	metrics *alertmetrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

func WithSink(sink Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sink) }
}

func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *alertmetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine constructs the alert engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		entries: make(map[Key]*entry),
		events:  make(chan Event, 128),
		clock:   realClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe feeds one classified sample into the key's state machine and
// returns the resulting state. alertDelay applies when this sample
// starts a new excursion timer.
func (e *Engine) Observe(_ context.Context, key Key, alertDelay time.Duration, isInside bool, sample models.Position) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.entries[key]
	if ent == nil {
		ent = &entry{state: StateSafe}
		e.entries[key] = ent
	}
	ent.lastSample = sample

	if isInside {
		switch ent.state {
		case StatePending:
			// Re-entry before the delay elapsed: cancel the excursion,
			// no alert is raised.
			e.cancelTimer(ent)
			ent.state = StateSafe
			e.metrics.RecordTimerCanceled()
		case StateAlerting:
			ent.state = StateSafe
			e.metrics.RecordCleared()
			e.dispatch(Event{ProfileID: key.ProfileID, ZoneID: key.ZoneID, Event: EventCleared, At: e.clock.Now()})
		}
		return ent.state
	}

	// Sample classified outside the zone.
	if ent.state == StateSafe {
		ent.state = StatePending
		ent.generation++
		generation := ent.generation
		ent.timer = e.clock.AfterFunc(alertDelay, func() {
			e.fire(key, generation)
		})
		e.metrics.RecordTimerStarted()
	}
	// PENDING keeps its existing timer; ALERTING stays until re-entry
	// or dismissal.
	return ent.state
}

// fire is the timer callback. The generation check makes a callback
// that lost the race against cancellation or teardown a no-op.
func (e *Engine) fire(key Key, generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.entries[key]
	if ent == nil || ent.generation != generation || ent.state != StatePending {
		return
	}
	ent.timer = nil
	ent.state = StateAlerting
	e.metrics.RecordExitAlert()
	e.logger.Warn("exit alert raised",
		"profile_id", key.ProfileID,
		"zone_id", key.ZoneID,
	)
	e.dispatch(Event{ProfileID: key.ProfileID, ZoneID: key.ZoneID, Event: EventExitAlert, At: e.clock.Now()})
}

// Dismiss clears an active alert at the caregiver's request. Dismissing
// a pair that is not alerting is a no-op.
func (e *Engine) Dismiss(_ context.Context, key Key) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.entries[key]
	if ent == nil {
		return StateSafe
	}
	if ent.state == StateAlerting {
		ent.state = StateSafe
		e.metrics.RecordCleared()
		e.dispatch(Event{ProfileID: key.ProfileID, ZoneID: key.ZoneID, Event: EventCleared, At: e.clock.Now()})
	}
	return ent.state
}

// Reset tears down one pair's runtime state: a pending excursion timer
// is canceled and a raised alert is cleared on the way out. Zone
// disable paths call this so a disabled zone can neither fire a
// scheduled alert nor stay ALERTING.
func (e *Engine) Reset(_ context.Context, key Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.entries[key]
	if ent == nil {
		return
	}
	switch ent.state {
	case StatePending:
		e.metrics.RecordTimerCanceled()
	case StateAlerting:
		e.metrics.RecordCleared()
		e.dispatch(Event{ProfileID: key.ProfileID, ZoneID: key.ZoneID, Event: EventCleared, At: e.clock.Now()})
	}
	e.cancelTimer(ent)
	delete(e.entries, key)
}

// StateOf returns the current state of a pair; untracked pairs are SAFE.
func (e *Engine) StateOf(key Key) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent := e.entries[key]; ent != nil {
		return ent.state
	}
	return StateSafe
}

// StopTracking destroys all runtime state for a profile and cancels any
// outstanding timers. A timer that already fired concurrently finds its
// entry gone and does nothing.
func (e *Engine) StopTracking(_ context.Context, profileID id.ProfileID) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for key, ent := range e.entries {
		if key.ProfileID != profileID {
			continue
		}
		e.cancelTimer(ent)
		delete(e.entries, key)
		removed++
	}
	return removed
}

func (e *Engine) cancelTimer(ent *entry) {
	if ent.timer != nil {
		ent.timer.Stop()
		ent.timer = nil
	}
	// Invalidate any callback that raced the Stop.
	ent.generation++
}

// dispatch enqueues an event without blocking; state transitions must
// never wait on sink I/O. Callers hold e.mu.
func (e *Engine) dispatch(event Event) {
	select {
	case e.events <- event:
	default:
		e.metrics.RecordEventDropped()
		e.logger.Error("alert event dropped, dispatch buffer full",
			"profile_id", event.ProfileID,
			"zone_id", event.ZoneID,
			"event", string(event.Event),
		)
	}
}

// Run drains the event buffer and delivers to the sinks until the
// context is canceled. Sink failures are logged, never retried; the
// next state change produces a fresh event.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-e.events:
			for _, sink := range e.sinks {
				if err := sink.Notify(ctx, event); err != nil {
					e.logger.Error("alert sink delivery failed",
						"profile_id", event.ProfileID,
						"zone_id", event.ZoneID,
						"event", string(event.Event),
						"error", err,
					)
				}
			}
		}
	}
}
