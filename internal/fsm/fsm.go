// Package fsm models the relay bridge lifecycle as an explicit transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateDelivering State = "delivering"
	StateError      State = "error"
)

const (
	EventStart     Event = "start"
	EventSubmit    Event = "submit"
	EventDelivered Event = "delivered"
	EventStop      Event = "stop"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{StateIdle, EventStart}:           StateListening,
	{StateListening, EventSubmit}:     StateDelivering,
	{StateListening, EventStop}:       StateIdle,
	{StateDelivering, EventDelivered}: StateListening,
	{StateError, EventReset}:          StateListening,
	{StateError, EventStop}:           StateIdle,
}

// Transition returns the state reached from current on event. Fail is
// accepted from every known state.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle, StateListening, StateDelivering, StateError:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}

	if event == EventFail {
		return StateError, nil
	}
	if next, ok := transitions[edge{current, event}]; ok {
		return next, nil
	}
	return current, fmt.Errorf("invalid transition: %s --(%s)--> ?", current, event)
}
