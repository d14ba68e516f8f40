// Package status defines the submission status of a deal form and its allowed transitions.
package status

// Status is the submission state of one form.
type Status string

// submission states.
const (
	Idle       Status = "idle"       // editable, nothing in flight
	Submitting Status = "submitting" // create-deal call in flight, submit disabled
	Succeeded  Status = "succeeded"  // deal created, form resets after a display delay
	Failed     Status = "failed"     // create-deal failed, draft kept for retry
)

// transitions lists the allowed moves. reset to Idle is allowed from every state.
var transitions = map[Status]map[Status]bool{
	Idle:       {Submitting: true},
	Submitting: {Succeeded: true, Failed: true, Idle: true},
	Succeeded:  {Idle: true},
	Failed:     {Submitting: true, Idle: true},
}

// CanTransition reports whether the state machine allows moving from one status to another.
// staying in the same status is not a transition.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if to == Idle {
		return from.Valid()
	}
	return transitions[from][to]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Busy reports whether a submission is in flight.
func (s Status) Busy() bool { return s == Submitting }
