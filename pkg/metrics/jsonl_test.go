package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestJSONLObserverFlushesBufferedLines(t *testing.T) {
	var out bytes.Buffer
	o := NewJSONLObserver(&out)

	o.RecordEvent(Event{
		Name:  "call_connected",
		Time:  time.Now(),
		Value: 42,
		Tags:  map[string]string{"number": "18005551212"},
	})
	if out.Len() != 0 {
		t.Fatalf("expected the record to stay buffered until flush")
	}

	if err := o.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	line := out.String()
	if !strings.Contains(line, `"name":"call_connected"`) {
		t.Fatalf("timeline line missing event name: %q", line)
	}
	if !strings.Contains(line, `"number":"18005551212"`) {
		t.Fatalf("timeline line missing tag: %q", line)
	}
}
