package domain

import "errors"

// TurnState is the display state of a single conversation turn.
type TurnState string

const (
	StatePending  TurnState = "pending"
	StateResolved TurnState = "resolved"
	StateRefused  TurnState = "refused"
	StateFailed   TurnState = "failed"
)

// ErrTurnSettled is returned when a turn that already reached a terminal state
// is settled again.
var ErrTurnSettled = errors.New("domain: turn already settled")

// Turn is one user submission and its response. Turns are never persisted.
type Turn struct {
	ID       string
	Input    string
	Allowed  bool
	Response string
	State    TurnState
}

// NewTurn returns a pending turn for the given input.
func NewTurn(id, input string) Turn {
	return Turn{ID: id, Input: input, State: StatePending}
}

func (t *Turn) Pending() bool {
	return t.State == StatePending
}

func (t *Turn) Resolve(response string) error {
	return t.settle(StateResolved, response)
}

func (t *Turn) Refuse(response string) error {
	return t.settle(StateRefused, response)
}

func (t *Turn) Fail(response string) error {
	return t.settle(StateFailed, response)
}

func (t *Turn) settle(state TurnState, response string) error {
	if !t.Pending() {
		return ErrTurnSettled
	}
	t.State = state
	t.Response = response
	return nil
}
