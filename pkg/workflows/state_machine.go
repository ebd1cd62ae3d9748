package workflows

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidState is returned when the current state is not registered
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidAction is returned when the action is not available in the current state
	ErrInvalidAction = errors.New("invalid action")
	// ErrInvalidTransitionResult is returned when a handler produces an unregistered state
	ErrInvalidTransitionResult = errors.New("invalid transition result")
)

// Handler performs the side effects of one (state, action) edge and returns the next state.
type Handler[S ~string, T any] func(subject T) S

// Table maps each state to the handlers of the actions it accepts.
type Table[S ~string, A ~string, T any] map[S]map[A]Handler[S, T]

// StateMachine enforces transitions through a fixed table
type StateMachine[S ~string, A ~string, T any] struct {
	states map[S]struct{}
	table  Table[S, A, T]
}

// NewStateMachine builds a state machine over the given states. Every common
// action is merged into each state's action set unless the table already
// defines that action for the state. The table is copied; later changes to
// the argument do not affect the machine.
func NewStateMachine[S ~string, A ~string, T any](states []S, table Table[S, A, T], common map[A]Handler[S, T]) (*StateMachine[S, A, T], error) {
	sm := &StateMachine[S, A, T]{
		states: make(map[S]struct{}, len(states)),
		table:  make(Table[S, A, T], len(states)),
	}
	for _, s := range states {
		sm.states[s] = struct{}{}
	}

	for from, actions := range table {
		if _, ok := sm.states[from]; !ok {
			return nil, fmt.Errorf("%w: table references %q", ErrInvalidState, from)
		}
		row := make(map[A]Handler[S, T], len(actions)+len(common))
		for action, h := range actions {
			if h == nil {
				return nil, fmt.Errorf("nil handler for %q in %q", action, from)
			}
			row[action] = h
		}
		sm.table[from] = row
	}

	for _, s := range states {
		row, ok := sm.table[s]
		if !ok {
			row = make(map[A]Handler[S, T], len(common))
			sm.table[s] = row
		}
		for action, h := range common {
			if _, exists := row[action]; !exists {
				row[action] = h
			}
		}
	}

	return sm, nil
}

// IsValidState reports whether s is a registered state
func (sm *StateMachine[S, A, T]) IsValidState(s S) bool {
	_, ok := sm.states[s]
	return ok
}

// CanExecute reports whether action is available in state from
func (sm *StateMachine[S, A, T]) CanExecute(from S, action A) bool {
	_, ok := sm.table[from][action]
	return ok
}

// GetAllowedActions returns the actions available in a state, sorted by code
func (sm *StateMachine[S, A, T]) GetAllowedActions(from S) []A {
	row, exists := sm.table[from]
	if !exists {
		return []A{}
	}
	allowed := make([]A, 0, len(row))
	for action := range row {
		allowed = append(allowed, action)
	}
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	return allowed
}

// Execute validates the (from, action) pair, runs its handler against subject
// and returns the state the handler chose.
func (sm *StateMachine[S, A, T]) Execute(from S, action A, subject T) (S, error) {
	var zero S
	if !sm.IsValidState(from) {
		return zero, fmt.Errorf("%w: %q", ErrInvalidState, from)
	}
	h, ok := sm.table[from][action]
	if !ok {
		return zero, fmt.Errorf("%w: %q not available in %q", ErrInvalidAction, action, from)
	}
	next := h(subject)
	if !sm.IsValidState(next) {
		return zero, fmt.Errorf("%w: %q after %q in %q", ErrInvalidTransitionResult, next, action, from)
	}
	return next, nil
}
