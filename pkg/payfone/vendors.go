package payfone

import (
	"fmt"

	"github.com/harunnryd/payfone/pkg/adapters/stt"
	"github.com/harunnryd/payfone/pkg/adapters/tts"
	"github.com/harunnryd/payfone/pkg/configutil"
	"github.com/harunnryd/payfone/pkg/llm"
	"github.com/harunnryd/payfone/pkg/providers/deepgram"
	"github.com/harunnryd/payfone/pkg/providers/elevenlabs"
	"github.com/harunnryd/payfone/pkg/providers/mock"
	"github.com/harunnryd/payfone/pkg/providers/openai"
)

type openaiSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Voice   string `mapstructure:"voice"`
}

type elevenlabsSettings struct {
	APIKey       string `mapstructure:"api_key"`
	ModelID      string `mapstructure:"model_id"`
	OutputFormat string `mapstructure:"output_format"`
	SampleRate   int    `mapstructure:"sample_rate"`
}

type deepgramSettings struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

type mockSettings struct {
	ResponseText string `mapstructure:"response_text"`
	Transcript   string `mapstructure:"transcript"`
}

// Settings maps are validated before decode so a typoed or missing key
// fails at startup instead of silently falling back to a default.
var (
	openaiLLMSchema  = configutil.Schema{Required: []string{"api_key"}, Optional: []string{"model", "base_url"}}
	openaiTTSSchema  = configutil.Schema{Required: []string{"api_key"}, Optional: []string{"model", "base_url", "voice"}}
	elevenlabsSchema = configutil.Schema{Required: []string{"api_key"}, Optional: []string{"model_id", "output_format", "sample_rate"}}
	deepgramSchema   = configutil.Schema{Required: []string{"api_key"}, Optional: []string{"model", "language"}}
	mockSchema       = configutil.Schema{Optional: []string{"response_text", "transcript"}, AllowUnknown: true}
)

// buildLLM constructs the chat adapter named by cfg.Provider.
func buildLLM(cfg VendorConfig) (llm.Adapter, error) {
	switch cfg.Provider {
	case "openai":
		if err := configutil.ValidateSettings(cfg.Settings, openaiLLMSchema); err != nil {
			return nil, fmt.Errorf("vendors.llm.settings: %w", err)
		}
		var s openaiSettings
		if err := configutil.DecodeSettings(cfg.Settings, &s); err != nil {
			return nil, fmt.Errorf("vendors.llm.settings: %w", err)
		}
		a := openai.NewAdapter(s.APIKey, configutil.StringValue(s.Model, "gpt-4o-mini"))
		if s.BaseURL != "" {
			a.BaseURL = s.BaseURL
		}
		return a, nil
	case "mock":
		if err := configutil.ValidateSettings(cfg.Settings, mockSchema); err != nil {
			return nil, fmt.Errorf("vendors.llm.settings: %w", err)
		}
		var s mockSettings
		if err := configutil.DecodeSettings(cfg.Settings, &s); err != nil {
			return nil, fmt.Errorf("vendors.llm.settings: %w", err)
		}
		return mock.NewLLMAdapter(mock.LLMConfig{ResponseText: s.ResponseText}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// buildTTS constructs the speech synthesizer named by cfg.Provider.
func buildTTS(cfg VendorConfig) (tts.Synthesizer, error) {
	switch cfg.Provider {
	case "elevenlabs":
		if err := configutil.ValidateSettings(cfg.Settings, elevenlabsSchema); err != nil {
			return nil, fmt.Errorf("vendors.tts.settings: %w", err)
		}
		var s elevenlabsSettings
		if err := configutil.DecodeSettings(cfg.Settings, &s); err != nil {
			return nil, fmt.Errorf("vendors.tts.settings: %w", err)
		}
		return elevenlabs.New(elevenlabs.Config{
			APIKey:       s.APIKey,
			ModelID:      s.ModelID,
			OutputFormat: s.OutputFormat,
			SampleRate:   configutil.IntValue(s.SampleRate, 16000),
		}), nil
	case "openai":
		if err := configutil.ValidateSettings(cfg.Settings, openaiTTSSchema); err != nil {
			return nil, fmt.Errorf("vendors.tts.settings: %w", err)
		}
		var s openaiSettings
		if err := configutil.DecodeSettings(cfg.Settings, &s); err != nil {
			return nil, fmt.Errorf("vendors.tts.settings: %w", err)
		}
		sp := openai.NewSpeech(s.APIKey, s.Model)
		if s.BaseURL != "" {
			sp.BaseURL = s.BaseURL
		}
		return sp, nil
	case "mock":
		return mock.NewTTS(mock.TTSConfig{}), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}

// buildSTT constructs the transcriber named by cfg.Provider.
func buildSTT(cfg VendorConfig) (stt.Transcriber, error) {
	switch cfg.Provider {
	case "deepgram":
		if err := configutil.ValidateSettings(cfg.Settings, deepgramSchema); err != nil {
			return nil, fmt.Errorf("vendors.stt.settings: %w", err)
		}
		var s deepgramSettings
		if err := configutil.DecodeSettings(cfg.Settings, &s); err != nil {
			return nil, fmt.Errorf("vendors.stt.settings: %w", err)
		}
		return deepgram.New(deepgram.Config{
			APIKey:   s.APIKey,
			Model:    s.Model,
			Language: s.Language,
		}), nil
	case "mock":
		if err := configutil.ValidateSettings(cfg.Settings, mockSchema); err != nil {
			return nil, fmt.Errorf("vendors.stt.settings: %w", err)
		}
		var s mockSettings
		if err := configutil.DecodeSettings(cfg.Settings, &s); err != nil {
			return nil, fmt.Errorf("vendors.stt.settings: %w", err)
		}
		return mock.NewSTT(mock.STTConfig{Transcript: s.Transcript}), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}
