package stt

import "context"

// Options carries vendor-agnostic transcription parameters.
type Options struct {
	SampleRate int
	Encoding   string
	Language   string
}

// Transcriber defines the contract for any STT vendor implementation.
// One audio clip in, one transcript out.
type Transcriber interface {
	// Name returns the adapter name for logging/metrics.
	Name() string
	// Transcribe converts an audio clip to text.
	Transcribe(ctx context.Context, clip []byte, opts Options) (string, error)
}
