package mock

import (
	"context"
	"time"

	"github.com/harunnryd/payfone/pkg/adapters/stt"
)

type STTConfig struct {
	Transcript string
	Delay      time.Duration
	Err        error
}

// Transcriber answers every clip with a fixed transcript. Used by the
// local vendor profile and in tests.
type Transcriber struct {
	cfg STTConfig
}

func NewSTT(cfg STTConfig) *Transcriber {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	return &Transcriber{cfg: cfg}
}

func (t *Transcriber) Name() string { return "mock_stt" }

func (t *Transcriber) Transcribe(ctx context.Context, clip []byte, opts stt.Options) (string, error) {
	if t.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.cfg.Delay):
		}
	}
	if t.cfg.Err != nil {
		return "", t.cfg.Err
	}
	if len(clip) == 0 {
		return "", nil
	}
	return t.cfg.Transcript, nil
}

var _ stt.Transcriber = (*Transcriber)(nil)
