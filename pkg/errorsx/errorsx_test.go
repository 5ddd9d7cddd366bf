package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonGreetingFetch)
	if Reason(err) != ReasonGreetingFetch {
		t.Fatalf("expected reason %s, got %s", ReasonGreetingFetch, Reason(err))
	}
	if !HasReason(err, ReasonGreetingFetch) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonTTSSynthesize)
	second := Wrap(first, ReasonChatSend)
	if Reason(second) != ReasonTTSSynthesize {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonChatSend) != nil {
		t.Fatalf("expected nil wrap to stay nil")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
