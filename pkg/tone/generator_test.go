package tone

import (
	"testing"
	"time"

	"github.com/harunnryd/payfone/pkg/audio"
)

func TestDTMFPairsCoverKeypad(t *testing.T) {
	for _, key := range "0123456789*#" {
		pair, ok := DTMF(key)
		if !ok {
			t.Fatalf("expected DTMF pair for %q", key)
		}
		if pair[0] <= 0 || pair[1] <= 0 {
			t.Fatalf("invalid pair for %q: %v", key, pair)
		}
	}
	if _, ok := DTMF('x'); ok {
		t.Fatalf("expected no pair for non-keypad rune")
	}
}

func TestPlayToneWritesAudio(t *testing.T) {
	sink := audio.NewMemorySink()
	g := NewGenerator(sink, 8000, nil)
	g.PlayTone([]float64{697, 1209}, 40*time.Millisecond)

	waitFor(t, func() bool {
		for _, f := range sink.Frames() {
			if f.Kind() == audio.KindAudio {
				return true
			}
		}
		return false
	})
}

func TestStartRingIdempotent(t *testing.T) {
	sink := audio.NewMemorySink()
	g := NewGenerator(sink, 8000, nil)
	g.StartRing()
	g.StartRing()
	if !g.Ringing() {
		t.Fatalf("expected ringing after StartRing")
	}
	g.StopRing()
	if g.Ringing() {
		t.Fatalf("expected silence after StopRing")
	}

	starts := 0
	for _, cf := range sink.Controls() {
		if cf.Code() == audio.ControlRingStart {
			starts++
		}
	}
	if starts != 1 {
		t.Fatalf("expected exactly one ring_start, got %d", starts)
	}
}

func TestStopRingIdempotent(t *testing.T) {
	sink := audio.NewMemorySink()
	g := NewGenerator(sink, 8000, nil)
	g.StopRing()
	g.StartRing()
	g.StopRing()
	g.StopRing()

	stops := 0
	for _, cf := range sink.Controls() {
		if cf.Code() == audio.ControlRingStop {
			stops++
		}
	}
	if stops != 1 {
		t.Fatalf("expected exactly one ring_stop, got %d", stops)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
