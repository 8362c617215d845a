package engine

import "github.com/roach88/lps/internal/ir"

// EventType names an engine lifecycle event.
type EventType string

const (
	EventPreCycle  EventType = "preCycle"
	EventPostCycle EventType = "postCycle"
	EventRun       EventType = "run"
	EventPaused    EventType = "paused"
	EventUnpaused  EventType = "unpaused"
	EventWarning   EventType = "warning"
	EventError     EventType = "error"
	EventDone      EventType = "done"
	EventLoaded    EventType = "loaded"
	EventReady     EventType = "ready"
)

// WarningObservationRejected is the Warning.Type of an observation
// rejected by the constraints.
const WarningObservationRejected = "observation.reject"

// Warning is the payload of an EventWarning.
type Warning struct {
	Type    string
	Message string
	Term    ir.Term
	Start   int64
	End     int64
}

// Event is delivered to listeners registered with On.
type Event struct {
	Type EventType

	// Time is the engine's current time when the event was raised.
	Time int64

	// Warning is set for EventWarning.
	Warning *Warning

	// Err is set for EventError.
	Err error
}

// Listener receives engine events on the goroutine that raised them.
// Listeners run without engine locks held and may call engine methods.
type Listener func(Event)

// On registers fn for events of type t.
func (e *Engine) On(t EventType, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[t] = append(e.listeners[t], fn)
}

// raise queues an event for delivery. Caller holds e.mu; delivery happens
// in flush once the lock is released.
func (e *Engine) raise(ev Event) {
	ev.Time = e.currentTime
	e.outbox = append(e.outbox, pendingEvent{ev: ev, seq: e.seq.Next()})
}

type pendingEvent struct {
	ev  Event
	seq int64
}

// flush journals and delivers queued events. Caller must not hold e.mu.
func (e *Engine) flush() {
	e.mu.Lock()
	pending := e.outbox
	e.outbox = nil
	listeners := make(map[EventType][]Listener, len(e.listeners))
	for t, fns := range e.listeners {
		listeners[t] = append([]Listener(nil), fns...)
	}
	runID := e.runID
	e.mu.Unlock()

	for _, p := range pending {
		if runID != "" {
			e.journalEvent(runID, p)
		}
		for _, fn := range listeners[p.ev.Type] {
			fn(p.ev)
		}
	}
}
