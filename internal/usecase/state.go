package usecase

import "fmt"

// State is one phase of an operation run. Runs are short-lived: every
// invocation starts at Idle and ends at Done or Failed, with nothing carried
// over to the next invocation.
type State string

const (
	StateIdle       State = "Idle"
	StateFetching   State = "Fetching"
	StateValidating State = "Validating"
	StatePersisting State = "Persisting"
	StateComposing  State = "Composing"
	StatePublishing State = "Publishing"
	StateLogging    State = "Logging"
	StateDone       State = "Done"
	StateFailed     State = "Failed"
)

// validTransitions encodes the operation lifecycle. Refresh operations skip
// Composing/Publishing; generation operations skip Persisting.
var validTransitions = map[State][]State{
	StateIdle:       {StateFetching},
	StateFetching:   {StateValidating, StateFailed},
	StateValidating: {StatePersisting, StateComposing, StateFailed},
	StatePersisting: {StateComposing, StateLogging},
	StateComposing:  {StatePublishing},
	StatePublishing: {StateLogging, StateFailed},
	StateLogging:    {StateDone, StateFailed},
}

// CanTransition reports whether from may move to next.
func CanTransition(from, next State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Machine tracks the state of one operation invocation.
type Machine struct {
	op    string
	state State
}

// NewMachine starts a run at Idle.
func NewMachine(op string) *Machine {
	return &Machine{op: op, state: StateIdle}
}

// State returns the current phase.
func (m *Machine) State() State {
	return m.state
}

// To advances the run; an invalid transition is a programming error surfaced
// as a plain error so the caller can fail the run instead of panicking.
func (m *Machine) To(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("operation %s: invalid transition %s -> %s", m.op, m.state, next)
	}
	m.state = next
	return nil
}

// Terminal reports whether the run has ended.
func (m *Machine) Terminal() bool {
	return m.state == StateDone || m.state == StateFailed
}
