package mock

import (
	"context"
	"time"

	"github.com/harunnryd/payfone/pkg/llm"
)

type LLMConfig struct {
	ResponseText string
	Delay        time.Duration
	Err          error
}

// LLMAdapter answers every Generate call with a fixed reply. Used by the
// local vendor profile and in tests.
type LLMAdapter struct {
	cfg LLMConfig
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	if cfg.ResponseText == "" {
		cfg.ResponseText = "mock response"
	}
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	if a.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		case <-time.After(a.cfg.Delay):
		}
	}
	if a.cfg.Err != nil {
		return llm.Response{}, a.cfg.Err
	}
	return llm.Response{Text: a.cfg.ResponseText, FinishReason: "stop"}, nil
}

var _ llm.Adapter = (*LLMAdapter)(nil)
