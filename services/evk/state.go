package evk

// State is the demo step selected by button presses.
type State int8

const (
	StateUninit State = -1

	StateStarted State = iota - 1 // ch0 full
	StatePush1                    // ch0, ch1 full
	StatePush2                    // all full
	StatePush3                    // all smooth, same phase
	StatePush4                    // all smooth, staggered
	StatePush5Limp                // all off, status polling stopped

	numStates
)

// Next returns the state after s, wrapping from Limp to Started. The
// uninitialized sentinel advances to Started.
func (s State) Next() State {
	if s < StateStarted {
		return StateStarted
	}
	return (s + 1) % numStates
}

var stateNames = [numStates]string{"STARTED", "PUSH1", "PUSH2", "PUSH3", "PUSH4", "LIMP"}

func (s State) String() string {
	if s >= 0 && s < numStates {
		return stateNames[s]
	}
	return "UNINIT"
}
