package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/harunnryd/payfone/pkg/adapters/tts"
	"github.com/harunnryd/payfone/pkg/errorsx"
)

type Config struct {
	APIKey       string
	ModelID      string
	OutputFormat string
	SampleRate   int
	BaseURL      string
}

// Synthesizer renders clips over the ElevenLabs REST API. Output is raw
// PCM16 mono at the configured rate (pcm_16000 unless overridden).
type Synthesizer struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Synthesizer {
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_turbo_v2_5"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "pcm_16000"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	return &Synthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *Synthesizer) Name() string { return "elevenlabs_tts" }

func (s *Synthesizer) SampleRate() int { return s.cfg.SampleRate }

func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	if s.cfg.APIKey == "" || voice == "" {
		return nil, errorsx.Wrap(errors.New("missing elevenlabs config"), errorsx.ReasonProviderConfig)
	}
	payload := map[string]any{
		"text":     text,
		"model_id": s.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.buildURL(voice), bytes.NewBuffer(b))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.cfg.APIKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return nil, errorsx.Wrap(errors.New(string(body)), errorsx.ReasonTTSRateLimit)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errorsx.Wrap(errors.New(string(body)), errorsx.ReasonTTSSynthesize)
	}
	clip, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	return clip, nil
}

func (s *Synthesizer) buildURL(voice string) string {
	q := url.Values{}
	q.Set("output_format", s.cfg.OutputFormat)
	return s.cfg.BaseURL + "/text-to-speech/" + url.PathEscape(voice) + "?" + q.Encode()
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
