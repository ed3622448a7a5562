package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ScheduledClient wraps a Client with retry and exponential backoff.
// All orchestration-facing callers go through this wrapper so a transient
// provider error never surfaces as a hard failure on the first attempt.
type ScheduledClient struct {
	inner       Client
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)

	// Metrics (atomic)
	totalCalls    int64
	totalRetries  int64
	totalFailures int64
}

// ScheduleConfig holds retry configuration.
type ScheduleConfig struct {
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultScheduleConfig returns sensible defaults.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		MaxRetries:  3,
		BackoffBase: time.Second,
	}
}

// ScheduleMetrics is a point-in-time snapshot of wrapper activity.
type ScheduleMetrics struct {
	Calls    int64
	Retries  int64
	Failures int64
}

// NewScheduledClient wraps a client with default retry settings.
func NewScheduledClient(inner Client) *ScheduledClient {
	return NewScheduledClientWithConfig(inner, DefaultScheduleConfig())
}

// NewScheduledClientWithConfig wraps a client with custom retry settings.
func NewScheduledClientWithConfig(inner Client, cfg ScheduleConfig) *ScheduledClient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	return &ScheduledClient{
		inner:       inner,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		sleep:       time.Sleep,
	}
}

// Complete sends a prompt with retries.
func (s *ScheduledClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.do(ctx, func() (string, error) {
		return s.inner.Complete(ctx, prompt)
	})
}

// CompleteWithSystem sends a prompt with a system message, with retries.
func (s *ScheduledClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.do(ctx, func() (string, error) {
		return s.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	})
}

// CompleteBounded sends a prompt with a hard output budget, with retries.
func (s *ScheduledClient) CompleteBounded(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return s.do(ctx, func() (string, error) {
		return s.inner.CompleteBounded(ctx, systemPrompt, userPrompt, maxTokens)
	})
}

// Metrics returns a snapshot of wrapper activity.
func (s *ScheduledClient) Metrics() ScheduleMetrics {
	return ScheduleMetrics{
		Calls:    atomic.LoadInt64(&s.totalCalls),
		Retries:  atomic.LoadInt64(&s.totalRetries),
		Failures: atomic.LoadInt64(&s.totalFailures),
	}
}

func (s *ScheduledClient) do(ctx context.Context, call func() (string, error)) (string, error) {
	atomic.AddInt64(&s.totalCalls, 1)

	var lastErr error
	for i := 0; i < s.maxRetries; i++ {
		if i > 0 {
			atomic.AddInt64(&s.totalRetries, 1)
			// Exponential backoff: base, 2*base, 4*base, ...
			s.sleep(s.backoffBase * time.Duration(1<<uint(i-1)))
		}

		if err := ctx.Err(); err != nil {
			atomic.AddInt64(&s.totalFailures, 1)
			return "", err
		}

		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	atomic.AddInt64(&s.totalFailures, 1)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

var _ Client = (*ScheduledClient)(nil)
