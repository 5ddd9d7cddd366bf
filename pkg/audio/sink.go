package audio

import "sync"

// Sink is the output boundary for synthesized audio. The playback driver
// owns one sink exclusively; the tone generator owns its own so that DTMF
// feedback and ringback never contend with speech for the same slot.
type Sink interface {
	Name() string
	Write(Frame) error
}

// NullSink discards everything. Used when running headless.
type NullSink struct{}

func (NullSink) Name() string      { return "null" }
func (NullSink) Write(Frame) error { return nil }

// MemorySink captures frames for inspection in tests.
type MemorySink struct {
	mu     sync.Mutex
	frames []Frame
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Write(f Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

// Frames returns a snapshot of everything written so far.
func (s *MemorySink) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// Controls returns only the control frames, in write order.
func (s *MemorySink) Controls() []ControlFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ControlFrame
	for _, f := range s.frames {
		if cf, ok := f.(ControlFrame); ok {
			out = append(out, cf)
		}
	}
	return out
}

// Reset clears the captured frames.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}
