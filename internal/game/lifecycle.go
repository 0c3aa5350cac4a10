package game

import "fmt"

// State is the session lifecycle position. Disconnected is terminal and
// reachable from any non-terminal state; the rest advance strictly
// forward.
type State int

const (
	StateLoading State = iota
	StateActive
	StateEvaluating
	StateFinished
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateEvaluating:
		return "evaluating"
	case StateFinished:
		return "finished"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition validates a lifecycle move.
func Transition(from, to State) (State, error) {
	if from == to {
		return from, fmt.Errorf("lifecycle: already %s", from)
	}
	ok := false
	switch from {
	case StateLoading:
		ok = to == StateActive || to == StateDisconnected
	case StateActive:
		ok = to == StateEvaluating || to == StateDisconnected
	case StateEvaluating:
		ok = to == StateFinished || to == StateDisconnected
	}
	if !ok {
		return from, fmt.Errorf("lifecycle: illegal transition %s -> %s", from, to)
	}
	return to, nil
}
