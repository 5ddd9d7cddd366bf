package payfone

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/payfone/pkg/directory"
	"github.com/harunnryd/payfone/pkg/errorsx"
	"github.com/harunnryd/payfone/pkg/llm"
	"github.com/harunnryd/payfone/pkg/logging"
)

// greetingInstruction is the synthetic first turn that makes the persona
// speak first when a call connects.
const greetingInstruction = "The caller has just picked up the handset and dialed your number. Greet them briefly, in character."

// ConvoService holds per-number conversation history and relays turns to
// the chat adapter. It backs both the greeting fetch and regular sends.
type ConvoService struct {
	resolver   directory.Resolver
	adapter    llm.Adapter
	maxHistory int
	logger     *slog.Logger

	mu      sync.Mutex
	history map[string][]llm.Message
}

func NewConvoService(resolver directory.Resolver, adapter llm.Adapter, maxHistory int, logger *slog.Logger) *ConvoService {
	if maxHistory <= 0 {
		maxHistory = 12
	}
	return &ConvoService{
		resolver:   resolver,
		adapter:    adapter,
		maxHistory: maxHistory,
		logger:     logging.NewComponentLogger(logger, "convo"),
		history:    make(map[string][]llm.Message),
	}
}

// Greeting starts a fresh conversation for number and returns the persona's
// opening line. Any prior history for the number is discarded.
func (s *ConvoService) Greeting(ctx context.Context, number string) (string, error) {
	p, ok := s.resolver.Resolve(number)
	if !ok {
		return "", errorsx.Wrap(fmt.Errorf("no persona for %s", number), errorsx.ReasonRouteNotFound)
	}

	input := llm.Context{
		System:   p.Prompt,
		Messages: []llm.Message{{Role: "user", Content: greetingInstruction}},
	}
	resp, err := s.adapter.Generate(ctx, input)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonGreetingFetch)
	}
	text := strings.TrimSpace(resp.Text)

	s.mu.Lock()
	if text != "" {
		s.history[number] = []llm.Message{{Role: "assistant", Content: text}}
	} else {
		delete(s.history, number)
	}
	s.mu.Unlock()

	return text, nil
}

// Send relays one user turn and returns the reply. History is carried per
// number and trimmed to the configured window.
func (s *ConvoService) Send(ctx context.Context, number, text string) (string, error) {
	p, ok := s.resolver.Resolve(number)
	if !ok {
		return "", errorsx.Wrap(fmt.Errorf("no persona for %s", number), errorsx.ReasonRouteNotFound)
	}

	s.mu.Lock()
	msgs := append([]llm.Message{}, s.history[number]...)
	s.mu.Unlock()
	msgs = append(msgs, llm.Message{Role: "user", Content: text})

	resp, err := s.adapter.Generate(ctx, llm.Context{System: p.Prompt, Messages: msgs})
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonChatSend)
	}
	reply := strings.TrimSpace(resp.Text)

	s.mu.Lock()
	msgs = append(msgs, llm.Message{Role: "assistant", Content: reply})
	if over := len(msgs) - s.maxHistory; over > 0 {
		msgs = msgs[over:]
	}
	s.history[number] = msgs
	s.mu.Unlock()

	s.logger.Debug("turn completed",
		slog.String("number", number),
		slog.String("finish_reason", resp.FinishReason),
		slog.Int("history", len(msgs)))
	return reply, nil
}

// Reset drops the history for number. Called on hang-up so a redial starts
// a brand-new conversation.
func (s *ConvoService) Reset(number string) {
	s.mu.Lock()
	delete(s.history, number)
	s.mu.Unlock()
}
