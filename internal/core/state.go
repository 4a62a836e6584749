package core

import (
	"fmt"
)

// SessionState is one step of the processing session lifecycle.
type SessionState string

const (
	StateCreated              SessionState = "created"
	StateNormalizing          SessionState = "normalizing"
	StateClassifying          SessionState = "classifying"
	StateRouting              SessionState = "routing"
	StateExecuting            SessionState = "executing"
	StateCompleted            SessionState = "completed"
	StateAwaitingConfirmation SessionState = "awaiting_confirmation"
	StateFailed               SessionState = "failed"
)

// allowedTransitions enumerates every legal state change. Anything absent is
// an illegal transition.
var allowedTransitions = map[SessionState][]SessionState{
	StateCreated:     {StateNormalizing, StateFailed},
	StateNormalizing: {StateClassifying, StateFailed},
	StateClassifying: {StateRouting, StateFailed},
	StateRouting:     {StateExecuting, StateFailed},
	StateExecuting:   {StateCompleted, StateAwaitingConfirmation, StateFailed},
}

// Terminal reports whether the state ends the session.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateAwaitingConfirmation, StateFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal.
func (s SessionState) CanTransition(next SessionState) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next state.
func (s SessionState) Transition(next SessionState) (SessionState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal session transition %s -> %s", s, next)
	}
	return next, nil
}
