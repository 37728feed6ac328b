package app

import (
	"errors"
	"fmt"
	"sync"
)

// State is the phase of a search session.
type State int

const (
	Idle State = iota
	Connected
	SearchIssued
	AwaitingOffer
	ResultTransfer
	DirectTransfer
	Terminal
)

// ErrInvalidStateTransition is returned when a transition is not allowed from the current state.
var ErrInvalidStateTransition = errors.New("invalid state transition")

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case SearchIssued:
		return "search-issued"
	case AwaitingOffer:
		return "awaiting-offer"
	case ResultTransfer:
		return "result-transfer"
	case DirectTransfer:
		return "direct-transfer"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// AcceptsOffers reports whether DCC offers are processed in this state.
// Offers may arrive while earlier transfers are still running, so both
// transfer states accept them too.
func (s State) AcceptsOffers() bool {
	return s == AwaitingOffer || s == ResultTransfer || s == DirectTransfer
}

// CanTransitionTo checks if a state transition is valid. Any non-terminal
// state may end the session.
func (s State) CanTransitionTo(next State) bool {
	if s == Terminal {
		return false
	}
	if next == Terminal {
		return true
	}

	switch s {
	case Idle:
		return next == Connected
	case Connected:
		return next == SearchIssued
	case SearchIssued:
		return next == AwaitingOffer
	case AwaitingOffer:
		return next == ResultTransfer || next == DirectTransfer
	case ResultTransfer, DirectTransfer:
		return next == AwaitingOffer || next == ResultTransfer || next == DirectTransfer
	default:
		return false
	}
}

// StateMachine holds the single session state in a concurrent-safe manner.
type StateMachine struct {
	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

// NewStateMachine returns a machine in the Idle state.
func NewStateMachine() *StateMachine {
	return &StateMachine{done: make(chan struct{})}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to next and returns the previous state.
func (m *StateMachine) Transition(next State) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	if !prev.CanTransitionTo(next) {
		return prev, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, prev, next)
	}
	m.setLocked(next, nil)
	return prev, nil
}

// TransitionFrom moves to next only if the machine is currently in from.
func (m *StateMachine) TransitionFrom(from, next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != from || !from.CanTransitionTo(next) {
		return false
	}
	m.setLocked(next, nil)
	return true
}

// Finish moves to Terminal and records err as the reason. It returns false
// if the machine had already finished.
func (m *StateMachine) Finish(err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Terminal {
		return false
	}
	m.setLocked(Terminal, err)
	return true
}

func (m *StateMachine) setLocked(next State, err error) {
	m.state = next
	if next == Terminal {
		m.err = err
		close(m.done)
	}
}

// Done returns a channel that is closed once the machine reaches Terminal.
func (m *StateMachine) Done() <-chan struct{} {
	return m.done
}

// Err returns the reason recorded by Finish, or nil.
func (m *StateMachine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
