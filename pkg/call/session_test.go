package call

import (
	"fmt"
	"testing"

	"github.com/harunnryd/payfone/pkg/directory"
)

func TestTranscriptEvictsOldestBeyondCap(t *testing.T) {
	tr := newTranscript(60)
	for i := 0; i < 100; i++ {
		tr.Append(RoleUser, fmt.Sprintf("message %d", i), false)
	}
	msgs := tr.Snapshot()
	if len(msgs) != 60 {
		t.Fatalf("expected exactly 60 entries, got %d", len(msgs))
	}
	if msgs[0].Text != "message 40" {
		t.Fatalf("expected oldest surviving entry to be message 40, got %q", msgs[0].Text)
	}
	if msgs[59].Text != "message 99" {
		t.Fatalf("expected newest entry to be message 99, got %q", msgs[59].Text)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("relative order broken at index %d", i)
		}
	}
}

func TestRevealMutatesInPlace(t *testing.T) {
	tr := newTranscript(60)
	tr.Append(RoleUser, "hi", false)
	pending := tr.Append(RoleAssistant, DefaultPlaceholder, true)

	if !tr.Reveal(pending.ID, "Hello caller.") {
		t.Fatalf("expected reveal to find the placeholder")
	}
	msgs := tr.Snapshot()
	if msgs[1].Text != "Hello caller." || msgs[1].Pending {
		t.Fatalf("placeholder not revealed in place: %+v", msgs[1])
	}
	if msgs[1].ID != pending.ID {
		t.Fatalf("reveal must not replace the message")
	}
}

func TestRevealMissingMessage(t *testing.T) {
	tr := newTranscript(60)
	if tr.Reveal("nope", "text") {
		t.Fatalf("expected reveal of unknown id to report false")
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newMessageID()
		if seen[id] {
			t.Fatalf("duplicate message id %s", id)
		}
		seen[id] = true
	}
}

func TestSessionTeardownCancelsContext(t *testing.T) {
	s := newSession(directory.Persona{Number: "1"}, 60)
	s.teardown()
	select {
	case <-s.Context().Done():
	default:
		t.Fatalf("expected session context cancelled after teardown")
	}
}
