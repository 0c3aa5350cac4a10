package game

import "testing"

func TestTransitionForwardPath(t *testing.T) {
	steps := []State{StateActive, StateEvaluating, StateFinished}
	s := StateLoading
	for _, next := range steps {
		got, err := Transition(s, next)
		if err != nil {
			t.Fatalf("Transition(%s, %s) error = %v", s, next, err)
		}
		s = got
	}
	if s != StateFinished {
		t.Fatalf("final state = %s, want finished", s)
	}
}

func TestTransitionDisconnectedFromNonTerminalStates(t *testing.T) {
	for _, from := range []State{StateLoading, StateActive, StateEvaluating} {
		got, err := Transition(from, StateDisconnected)
		if err != nil || got != StateDisconnected {
			t.Fatalf("Transition(%s, disconnected) = %s, %v", from, got, err)
		}
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	illegal := [][2]State{
		{StateLoading, StateEvaluating},
		{StateLoading, StateFinished},
		{StateActive, StateFinished},
		{StateEvaluating, StateActive},
		{StateFinished, StateActive},
		{StateFinished, StateDisconnected},
		{StateDisconnected, StateActive},
	}
	for _, pair := range illegal {
		if got, err := Transition(pair[0], pair[1]); err == nil {
			t.Fatalf("Transition(%s, %s) = %s, want error", pair[0], pair[1], got)
		}
	}
}
