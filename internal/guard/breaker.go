// Package guard holds the process-wide failure breaker. Repeated mutating
// failures trip a cooldown during which the orchestrator runs no tools at
// all. The breaker is created at process start and passed down explicitly;
// there is no package-level instance.
package guard

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"pagewright/internal/types"
)

// Breaker counts consecutive mutating failures behind one mutex. Read-only
// and conversation outcomes never touch the counter.
type Breaker struct {
	mu sync.Mutex

	consecutiveFailures int
	cooldownUntil       time.Time

	threshold int
	window    time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// BreakerConfig holds breaker tuning. Now is injectable so the window is
// testable without sleeping.
type BreakerConfig struct {
	FailureThreshold int
	Window           time.Duration
	Now              func() time.Time
}

// DefaultBreakerConfig returns the standard three-strikes, five-minute setup.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Window:           5 * time.Minute,
		Now:              time.Now,
	}
}

// BreakerSnapshot is a point-in-time view for status reporting.
type BreakerSnapshot struct {
	ConsecutiveFailures int
	CooldownUntil       time.Time
	InCooldown          bool
}

// NewBreaker creates a breaker with default config.
func NewBreaker(logger *zap.Logger) *Breaker {
	return NewBreakerWithConfig(DefaultBreakerConfig(), logger)
}

// NewBreakerWithConfig creates a breaker with custom config.
func NewBreakerWithConfig(cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		threshold: cfg.FailureThreshold,
		window:    cfg.Window,
		now:       cfg.Now,
		logger:    logger,
	}
}

// RecordOutcome feeds one orchestration outcome into the breaker. Only
// mutating intents move the counter.
func (b *Breaker) RecordOutcome(intent types.IntentType, success bool) {
	if !intent.Mutating() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearIfElapsedLocked()

	if success {
		if b.consecutiveFailures > 0 {
			b.logger.Debug("failure streak cleared",
				zap.Int("had_failures", b.consecutiveFailures))
		}
		b.consecutiveFailures = 0
		b.cooldownUntil = time.Time{}
		return
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold && b.cooldownUntil.IsZero() {
		b.cooldownUntil = b.now().Add(b.window)
		b.logger.Warn("failure breaker tripped",
			zap.Int("consecutive_failures", b.consecutiveFailures),
			zap.Duration("window", b.window),
			zap.Time("cooldown_until", b.cooldownUntil))
	}
}

// InCooldown reports whether mutating execution is currently suspended. An
// elapsed window clears the breaker as a side effect.
func (b *Breaker) InCooldown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearIfElapsedLocked()
	return !b.cooldownUntil.IsZero()
}

// Remaining returns how long the current cooldown still runs, or zero.
func (b *Breaker) Remaining() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearIfElapsedLocked()
	if b.cooldownUntil.IsZero() {
		return 0
	}
	return b.cooldownUntil.Sub(b.now())
}

// Snapshot returns the current breaker state.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearIfElapsedLocked()
	return BreakerSnapshot{
		ConsecutiveFailures: b.consecutiveFailures,
		CooldownUntil:       b.cooldownUntil,
		InCooldown:          !b.cooldownUntil.IsZero(),
	}
}

// clearIfElapsedLocked resets state once the window has passed. Callers hold
// the mutex.
func (b *Breaker) clearIfElapsedLocked() {
	if b.cooldownUntil.IsZero() {
		return
	}
	if b.now().Before(b.cooldownUntil) {
		return
	}
	b.logger.Debug("cooldown window elapsed")
	b.consecutiveFailures = 0
	b.cooldownUntil = time.Time{}
}
