package update

import "fmt"

// State is the coordinator lifecycle.
type State uint32

const (
	StateIdle State = iota
	StateEstimating
	StateDispatching
	StateDraining
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEstimating:
		return "estimating"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s >= StateDone
}
