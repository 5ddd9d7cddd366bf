package call

import "time"

// ChatStatus cycles ready → submitted → ready around a chat request so the
// presentation layer can disable duplicate submits.
type ChatStatus string

const (
	ChatReady     ChatStatus = "ready"
	ChatSubmitted ChatStatus = "submitted"
)

type EventKind string

const (
	EventState      EventKind = "state"
	EventTranscript EventKind = "transcript"
	EventChatStatus EventKind = "chat_status"
	EventSpeaking   EventKind = "speaking"
)

// Event is the observable surface of the orchestrator: state changes,
// transcript updates, and the small set of UI status flags.
type Event struct {
	Kind       EventKind  `json:"kind"`
	Time       time.Time  `json:"time"`
	State      string     `json:"state,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Dialed     string     `json:"dialed,omitempty"`
	Persona    string     `json:"persona,omitempty"`
	Transcript []Message  `json:"transcript,omitempty"`
	ChatStatus ChatStatus `json:"chat_status,omitempty"`
	Speaking   bool       `json:"speaking,omitempty"`
}

// Listener observes orchestrator events. Implementations must not block;
// they are invoked inline on the emitting goroutine.
type Listener interface {
	OnCallEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

func (f ListenerFunc) OnCallEvent(ev Event) { f(ev) }
