package handoff

// State is the lifecycle position of a single handoff request.
type State string

const (
	StateAnalyzing   State = "analyzing"
	StateRecommended State = "recommended"
	StateRejected    State = "rejected"
	StateExecuting   State = "executing"
	StateExecuted    State = "executed"
)

var transitions = map[State][]State{
	StateAnalyzing:   {StateRecommended, StateRejected},
	StateRecommended: {StateExecuting, StateRejected},
	StateExecuting:   {StateExecuted, StateRejected},
}

// CanTransition reports whether a handoff may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateExecuted || s == StateRejected
}
