package metrics

import "time"

// Event is one recorded call-lifecycle measurement (dial, join, speak,
// hang-up) with optional tags and a numeric value, usually a duration in
// milliseconds.
type Event struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev Event)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(Event) {}
