package call

// State is the call lifecycle position.
type State int

const (
	// StateIdle means on-hook: no digits, no session.
	StateIdle State = iota
	// StateDialing means digits are accumulating; no persona resolved yet.
	StateDialing
	// StateConnecting means a persona resolved; greeting and ring in flight.
	StateConnecting
	// StateConnected means the conversation is active.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDialing:
		return "DIALING"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}
