package plan

import (
	"context"
	"sync"
)

// fakeClient returns one canned reply or error for the planning call.
type fakeClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	lastSys string
	lastMsg string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteBounded(ctx, "", prompt, 0)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.CompleteBounded(ctx, systemPrompt, userPrompt, 0)
}

func (f *fakeClient) CompleteBounded(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSys = systemPrompt
	f.lastMsg = userPrompt
	return f.reply, f.err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
