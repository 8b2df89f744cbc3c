// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "fmt"

// # Session Lifecycle

// State is the position of a browser in the sign-in lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateActive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateFailed:
		return "authenticating_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateAnonymous:      {StateAuthenticating},
	StateAuthenticating: {StateActive, StateFailed},
	StateActive:         {StateAnonymous},
	StateFailed:         {StateAnonymous},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Lifecycle tracks one sign-in attempt through its states.
type Lifecycle struct {
	state State
}

// NewLifecycle starts in [StateAnonymous].
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateAnonymous}
}

// State returns the current state.
func (l *Lifecycle) State() State { return l.state }

// Transition moves to next or fails without changing state.
func (l *Lifecycle) Transition(next State) error {
	if !l.state.CanTransition(next) {
		return fmt.Errorf("auth: illegal session transition %s -> %s", l.state, next)
	}
	l.state = next
	return nil
}
