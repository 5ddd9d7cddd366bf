package call

import (
	"sync"
	"time"
)

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// stateMachine implements the finite state machine for the call lifecycle.
// Hang-up is modelled as a transition to IDLE, legal from every state.
type stateMachine struct {
	currentState State
	mu           sync.RWMutex

	connectingStart time.Time
	connectedStart  time.Time
}

func newStateMachine() *stateMachine {
	return &stateMachine{currentState: StateIdle}
}

// State returns the current state.
func (sm *stateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// transitionValid checks if a state transition is valid (lock held).
func (sm *stateMachine) transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:       {StateDialing, StateConnecting, StateIdle},
		StateDialing:    {StateConnecting, StateIdle},
		StateConnecting: {StateConnected, StateIdle},
		StateConnected:  {StateIdle},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (sm *stateMachine) Transition(state State, reason string) (StateChange, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.transitionValid(sm.currentState, state) {
		return StateChange{}, &InvalidTransitionError{From: sm.currentState, To: state}
	}

	oldState := sm.currentState
	sm.currentState = state

	switch state {
	case StateConnecting:
		sm.connectingStart = time.Now()
	case StateConnected:
		sm.connectedStart = time.Now()
	}

	return StateChange{
		FromState: oldState,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}, nil
}

// ConnectingSince reports when the current connect attempt started.
func (sm *stateMachine) ConnectingSince() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.connectingStart
}

// InvalidTransitionError represents an invalid state transition attempt.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
