// Package review drives one AI review of a matchup through an observable,
// single-flight state machine.
package review

// State is a workflow stage.
type State string

// Workflow stages.
const (
	Idle       State = "idle"
	Submitting State = "submitting"
	Waiting    State = "waiting"
	Validating State = "validating"
	Done       State = "done"
	Failed     State = "failed"
)

// InFlight reports whether an attempt is outstanding.
func (s State) InFlight() bool {
	return s == Submitting || s == Waiting || s == Validating
}

// Terminal reports whether the attempt has finished.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Label is the progress text shown while in s.
func (s State) Label() string {
	switch s {
	case Submitting:
		return "Submitting request"
	case Waiting:
		return "Waiting for AI review"
	case Validating:
		return "Validating response"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Ready"
	}
}

// Event drives a transition.
type Event string

// Workflow events.
const (
	EventStart          Event = "start"
	EventRequestSent    Event = "request_sent"
	EventResponseOK     Event = "response_ok"
	EventResponseError  Event = "response_error"
	EventSchemaValid    Event = "schema_valid"
	EventSchemaInvalid  Event = "schema_invalid"
	EventTimeout        Event = "timeout"
	EventDispatchFailed Event = "dispatch_failed"
	EventAbandon        Event = "abandon"
)

var edges = map[State]map[Event]State{
	Idle:       {EventStart: Submitting},
	Submitting: {EventRequestSent: Waiting, EventDispatchFailed: Failed},
	Waiting:    {EventResponseOK: Validating, EventResponseError: Failed, EventTimeout: Failed},
	Validating: {EventSchemaValid: Done, EventSchemaInvalid: Failed},
	Done:       {EventStart: Submitting},
	Failed:     {EventStart: Submitting},
}

// Next returns the state reached from from on ev. Abandon leads to Idle from
// any state other than Idle; every other unlisted edge is refused.
func Next(from State, ev Event) (State, bool) {
	if ev == EventAbandon {
		return Idle, from != Idle
	}
	to, ok := edges[from][ev]
	return to, ok
}
