package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	steps := []struct {
		event Event
		want  State
	}{
		{EventStart, StateListening},
		{EventSubmit, StateDelivering},
		{EventDelivered, StateListening},
		{EventSubmit, StateDelivering},
		{EventDelivered, StateListening},
		{EventStop, StateIdle},
	}

	state := StateIdle
	for _, step := range steps {
		next, err := Transition(state, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next)
		state = next
	}
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	for _, state := range []State{StateIdle, StateListening, StateDelivering, StateError} {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionErrorRecovery(t *testing.T) {
	next, err := Transition(StateError, EventReset)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(StateError, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionInvalidEdgesKeepState(t *testing.T) {
	tests := []struct {
		state State
		event Event
	}{
		{StateIdle, EventSubmit},
		{StateIdle, EventStop},
		{StateIdle, EventDelivered},
		{StateIdle, EventReset},
		{StateListening, EventStart},
		{StateListening, EventDelivered},
		{StateDelivering, EventSubmit},
		{StateDelivering, EventStop},
		{StateDelivering, EventStart},
		{StateError, EventSubmit},
		{StateError, EventStart},
	}

	for _, tc := range tests {
		next, err := Transition(tc.state, tc.event)
		require.Error(t, err, "%s/%s", tc.state, tc.event)
		require.Contains(t, err.Error(), "invalid transition")
		require.Equal(t, tc.state, next)
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("paused"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("paused"), next)
}
