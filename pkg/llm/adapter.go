package llm

import "context"

// Message is one conversation entry in provider-neutral form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context is the input to a chat completion.
type Context struct {
	System   string
	Messages []Message
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-neutral chat completion result.
type Response struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Adapter is the contract for any chat-completion vendor implementation.
type Adapter interface {
	// Name returns the adapter name for logging/metrics.
	Name() string
	// Generate produces a single completion for the given context.
	Generate(ctx context.Context, input Context) (Response, error)
}
