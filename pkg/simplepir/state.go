package simplepir

import "fmt"

// ClientState names the five states a SimplePIR client query moves through,
// per spec.md §4.2: SETUP -> QUERYING -> AWAITING_ANSWER -> RECONSTRUCT ->
// DONE. A server is stateless per query and has no analogous machine.
type ClientState int

const (
	StateSetup ClientState = iota
	StateQuerying
	StateAwaitingAnswer
	StateReconstruct
	StateDone
)

func (s ClientState) String() string {
	switch s {
	case StateSetup:
		return "SETUP"
	case StateQuerying:
		return "QUERYING"
	case StateAwaitingAnswer:
		return "AWAITING_ANSWER"
	case StateReconstruct:
		return "RECONSTRUCT"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// transitions enumerates the only legal moves between states.
var transitions = map[ClientState]ClientState{
	StateSetup:          StateQuerying,
	StateQuerying:       StateAwaitingAnswer,
	StateAwaitingAnswer: StateReconstruct,
	StateReconstruct:    StateDone,
}

// advance reports whether moving from cur to next is a legal transition.
func advance(cur, next ClientState) bool {
	return transitions[cur] == next
}
