package mock

import (
	"context"
	"time"

	"github.com/harunnryd/payfone/pkg/adapters/tts"
	"github.com/harunnryd/payfone/pkg/audio"
)

type TTSConfig struct {
	SampleRate int
	// ClipPerRune stretches the synthesized clip with text length so
	// playback timing in demos feels roughly like speech.
	ClipPerRune time.Duration
	Err         error
}

// Synthesizer renders a flat tone sized to the text. Used by the local
// vendor profile and in tests.
type Synthesizer struct {
	cfg TTSConfig
}

func NewTTS(cfg TTSConfig) *Synthesizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultRate
	}
	if cfg.ClipPerRune == 0 {
		cfg.ClipPerRune = 40 * time.Millisecond
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) SampleRate() int { return s.cfg.SampleRate }

func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if s.cfg.Err != nil {
		return nil, s.cfg.Err
	}
	if text == "" {
		return nil, nil
	}
	dur := time.Duration(len([]rune(text))) * s.cfg.ClipPerRune
	return audio.Render([]float64{330}, dur, s.cfg.SampleRate), nil
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
