package call

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/payfone/pkg/directory"
)

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultPlaceholder is the filler text an assistant message shows before
// its real content is revealed on audio start.
const DefaultPlaceholder = "…"

// Message is one transcript entry. The only mutation a Message ever
// undergoes is the in-place reveal of an assistant placeholder.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Pending   bool      `json:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// newMessageID builds a process-unique, creation-order-sortable identifier:
// nanosecond timestamp plus a random suffix.
func newMessageID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// transcript is an append-only ordered log capped at the most recent max
// entries; the oldest are evicted first.
type transcript struct {
	mu   sync.Mutex
	max  int
	msgs []Message
}

func newTranscript(max int) *transcript {
	if max <= 0 {
		max = 60
	}
	return &transcript{max: max}
}

func (t *transcript) Append(role Role, text string, pending bool) Message {
	msg := Message{
		ID:        newMessageID(),
		Role:      role,
		Text:      text,
		Pending:   pending,
		CreatedAt: time.Now(),
	}
	t.mu.Lock()
	t.msgs = append(t.msgs, msg)
	if overflow := len(t.msgs) - t.max; overflow > 0 {
		t.msgs = append(t.msgs[:0], t.msgs[overflow:]...)
	}
	t.mu.Unlock()
	return msg
}

// Reveal mutates the identified placeholder in place to its final text and
// clears the pending flag. Returns false if the message is gone (evicted or
// the session was torn down).
func (t *transcript) Reveal(id, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.msgs {
		if t.msgs[i].ID == id {
			t.msgs[i].Text = text
			t.msgs[i].Pending = false
			return true
		}
	}
	return false
}

func (t *transcript) Snapshot() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.msgs...)
}

func (t *transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// Session holds the state of the one live call. It exists from the moment a
// persona resolves until hang-up; at most one is ever live.
type Session struct {
	Number     string
	Persona    directory.Persona
	StartedAt  time.Time
	transcript *transcript
	pendingID  string

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(p directory.Persona, maxTranscript int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		Number:     p.Number,
		Persona:    p,
		StartedAt:  time.Now(),
		transcript: newTranscript(maxTranscript),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Context is cancelled when the session is torn down; every network request
// belonging to the call is derived from it.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
}
