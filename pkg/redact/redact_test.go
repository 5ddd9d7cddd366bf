package redact

import "testing"

func TestTextDisabledPassesThrough(t *testing.T) {
	SetEnabled(false)
	in := "call me at 1800 555 1212 or bob@example.com"
	if got := Text(in); got != in {
		t.Fatalf("expected passthrough when disabled, got %q", got)
	}
}

func TestTextRedactsEmailAndPhone(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("call me at 1800 555 1212 or bob@example.com")
	if got != "call me at [REDACTED_PHONE] or [REDACTED_EMAIL]" {
		t.Fatalf("unexpected redaction result: %q", got)
	}
}
