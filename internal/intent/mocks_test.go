package intent

import (
	"context"
	"sync"
)

// fakeClient returns one canned reply or error. When block is set it hangs
// until the context is cancelled, for timeout tests.
type fakeClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	calls   int
	lastSys string
	lastMsg string
	lastMax int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteBounded(ctx, "", prompt, 0)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.CompleteBounded(ctx, systemPrompt, userPrompt, 0)
}

func (f *fakeClient) CompleteBounded(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastSys = systemPrompt
	f.lastMsg = userPrompt
	f.lastMax = maxTokens
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
