package tts

import "context"

// Synthesizer defines the contract for any TTS vendor implementation.
// Synthesis is request/response: one text in, one playable clip out.
type Synthesizer interface {
	// Name returns the adapter name for logging/metrics.
	Name() string
	// Synthesize renders text as PCM16 mono audio for the given voice.
	// An empty clip with nil error means the provider produced nothing.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	// SampleRate reports the rate of clips this synthesizer produces.
	SampleRate() int
}
