package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/harunnryd/payfone/pkg/adapters/tts"
	"github.com/harunnryd/payfone/pkg/errorsx"
)

// Speech calls the /audio/speech endpoint and returns raw PCM16 mono.
// OpenAI emits 24 kHz samples in pcm format.
type Speech struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewSpeech(apiKey, model string) *Speech {
	if model == "" {
		model = "tts-1"
	}
	return &Speech{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.openai.com/v1",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *Speech) Name() string { return "openai_tts" }

func (s *Speech) SampleRate() int { return 24000 }

func (s *Speech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	if voice == "" {
		voice = "alloy"
	}
	payload := map[string]any{
		"model":           s.Model,
		"input":           text,
		"voice":           voice,
		"response_format": "pcm",
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/audio/speech", bytes.NewBuffer(b))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	resp, err := s.client().Do(req)
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

func (s *Speech) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

var _ tts.Synthesizer = (*Speech)(nil)
