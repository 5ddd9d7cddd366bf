package call

import "testing"

func TestLifecycleTransitions(t *testing.T) {
	sm := newStateMachine()
	if sm.State() != StateIdle {
		t.Fatalf("expected initial IDLE, got %s", sm.State())
	}
	steps := []State{StateDialing, StateConnecting, StateConnected, StateIdle}
	for _, next := range steps {
		if _, err := sm.Transition(next, "test"); err != nil {
			t.Fatalf("transition to %s refused: %v", next, err)
		}
	}
}

func TestDirectoryShortcutSkipsDialing(t *testing.T) {
	sm := newStateMachine()
	if _, err := sm.Transition(StateConnecting, "directory entry"); err != nil {
		t.Fatalf("IDLE -> CONNECTING must be legal: %v", err)
	}
}

func TestInvalidTransitionRefused(t *testing.T) {
	sm := newStateMachine()
	if _, err := sm.Transition(StateConnected, "skip connecting"); err == nil {
		t.Fatalf("expected IDLE -> CONNECTED to be refused")
	}
	if sm.State() != StateIdle {
		t.Fatalf("state must be unchanged after refused transition")
	}
}

func TestHangupLegalFromEveryState(t *testing.T) {
	for _, from := range []State{StateDialing, StateConnecting, StateConnected} {
		sm := newStateMachine()
		switch from {
		case StateDialing:
			sm.Transition(StateDialing, "t")
		case StateConnecting:
			sm.Transition(StateConnecting, "t")
		case StateConnected:
			sm.Transition(StateConnecting, "t")
			sm.Transition(StateConnected, "t")
		}
		if _, err := sm.Transition(StateIdle, "hang up"); err != nil {
			t.Fatalf("hang up from %s refused: %v", from, err)
		}
	}
}
