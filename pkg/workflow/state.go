package workflow

import "fmt"

// State is the lifecycle position of one adapter
type State int

const (
	// NoInput means the adapter's inputs are not all chosen; its action is disabled
	NoInput State = iota

	// Ready means the action can run; no result is available
	Ready

	// Running means the external tool or export is in progress
	Running

	// Done means the last run succeeded and its result can be opened
	Done
)

func (s State) String() string {
	switch s {
	case NoInput:
		return "NO_INPUT"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Done:
		return "DONE"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// Event reports one state transition to the presentation layer
type Event struct {
	// Adapter names the emitting adapter ("crop", "registration", ...)
	Adapter string

	From State
	To   State

	// Err is set when the transition was caused by a failure
	Err error
}

// Observer receives every transition. It is called synchronously.
type Observer func(Event)

// machine validates transitions and notifies the observer
type machine struct {
	adapter  string
	state    State
	observer Observer
}

func newMachine(adapter string, observer Observer) machine {
	return machine{adapter: adapter, state: NoInput, observer: observer}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case NoInput:
		return to == NoInput || to == Ready
	case Ready:
		return to == NoInput || to == Ready || to == Running
	case Running:
		return to == Done || to == Ready
	case Done:
		return to == NoInput || to == Ready || to == Running
	default:
		return false
	}
}

func (m *machine) transition(to State, cause error) error {
	from := m.state
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("%s: disallowed transition %s -> %s", m.adapter, from, to)
	}
	m.state = to
	if m.observer != nil {
		m.observer(Event{Adapter: m.adapter, From: from, To: to, Err: cause})
	}
	return nil
}

// require fails with ErrNotReady unless the machine is in one of states
func (m *machine) require(action string, states ...State) error {
	for _, s := range states {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s is not available in state %s", ErrNotReady, m.adapter, action, m.state)
}

// fail moves a running machine back to Ready and returns err
func (m *machine) fail(err error) error {
	if terr := m.transition(Ready, err); terr != nil {
		return terr
	}
	return err
}
