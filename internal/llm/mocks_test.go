package llm

import (
	"context"
	"sync"
)

// scriptedClient replays a fixed sequence of responses. Once the script is
// exhausted it keeps returning the final entry.
type scriptedClient struct {
	mu      sync.Mutex
	script  []scriptedReply
	calls   int
	lastSys string
	lastMsg string
	lastMax int
}

type scriptedReply struct {
	text string
	err  error
}

func newScriptedClient(replies ...scriptedReply) *scriptedClient {
	return &scriptedClient{script: replies}
}

func (s *scriptedClient) next() scriptedReply {
	if len(s.script) == 0 {
		return scriptedReply{}
	}
	idx := s.calls - 1
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	return s.script[idx]
}

func (s *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteBounded(ctx, "", prompt, 0)
}

func (s *scriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.CompleteBounded(ctx, systemPrompt, userPrompt, 0)
}

func (s *scriptedClient) CompleteBounded(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastSys = systemPrompt
	s.lastMsg = userPrompt
	s.lastMax = maxTokens
	r := s.next()
	return r.text, r.err
}

func (s *scriptedClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ Client = (*scriptedClient)(nil)
