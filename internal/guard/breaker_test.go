package guard

import (
	"sync"
	"testing"
	"time"

	"pagewright/internal/types"
)

// testClock is an adjustable clock for window tests.
type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTestClock() *testClock {
	return &testClock{cur: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func testBreaker(clock *testClock) *Breaker {
	return NewBreakerWithConfig(BreakerConfig{
		FailureThreshold: 3,
		Window:           5 * time.Minute,
		Now:              clock.Now,
	}, nil)
}

func TestBreakerTripsAfterThreeFailures(t *testing.T) {
	clock := newTestClock()
	b := testBreaker(clock)

	b.RecordOutcome(types.IntentEditExisting, false)
	b.RecordOutcome(types.IntentEditExisting, false)
	if b.InCooldown() {
		t.Fatal("in cooldown after two failures")
	}

	b.RecordOutcome(types.IntentCreateNew, false)
	if !b.InCooldown() {
		t.Fatal("not in cooldown after three consecutive failures")
	}
	if got := b.Remaining(); got != 5*time.Minute {
		t.Errorf("Remaining = %v, want 5m", got)
	}
}

func TestBreakerIgnoresNonMutatingOutcomes(t *testing.T) {
	clock := newTestClock()
	b := testBreaker(clock)

	for i := 0; i < 10; i++ {
		b.RecordOutcome(types.IntentReadOnly, false)
		b.RecordOutcome(types.IntentConversation, false)
	}
	if b.InCooldown() {
		t.Fatal("read-only failures tripped the breaker")
	}
	if got := b.Snapshot().ConsecutiveFailures; got != 0 {
		t.Errorf("consecutiveFailures = %d, want 0", got)
	}
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	clock := newTestClock()
	b := testBreaker(clock)

	b.RecordOutcome(types.IntentCommit, false)
	b.RecordOutcome(types.IntentCommit, false)
	b.RecordOutcome(types.IntentCommit, true)
	b.RecordOutcome(types.IntentCommit, false)
	b.RecordOutcome(types.IntentCommit, false)
	if b.InCooldown() {
		t.Fatal("tripped despite a success splitting the streak")
	}

	b.RecordOutcome(types.IntentCommit, false)
	if !b.InCooldown() {
		t.Fatal("not tripped after three consecutive failures post-reset")
	}
}

func TestBreakerWindowElapses(t *testing.T) {
	clock := newTestClock()
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordOutcome(types.IntentEditExisting, false)
	}
	if !b.InCooldown() {
		t.Fatal("breaker did not trip")
	}

	clock.Advance(5*time.Minute + time.Second)
	if b.InCooldown() {
		t.Fatal("still in cooldown after the window elapsed")
	}

	// The counter restarted: one new failure is not enough to re-trip.
	b.RecordOutcome(types.IntentEditExisting, false)
	if b.InCooldown() {
		t.Fatal("re-tripped after a single post-window failure")
	}
	if got := b.Snapshot().ConsecutiveFailures; got != 1 {
		t.Errorf("consecutiveFailures = %d, want 1", got)
	}
}

func TestBreakerRemainingCountsDown(t *testing.T) {
	clock := newTestClock()
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordOutcome(types.IntentEditExisting, false)
	}
	clock.Advance(2 * time.Minute)
	if got := b.Remaining(); got != 3*time.Minute {
		t.Errorf("Remaining = %v, want 3m", got)
	}
}

func TestBreakerConcurrentFailures(t *testing.T) {
	clock := newTestClock()
	b := testBreaker(clock)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordOutcome(types.IntentEditExisting, false)
		}()
	}
	wg.Wait()

	if !b.InCooldown() {
		t.Fatal("fifty concurrent failures did not trip the breaker")
	}
	if got := b.Snapshot().ConsecutiveFailures; got != 50 {
		t.Errorf("consecutiveFailures = %d, want 50 (no lost updates)", got)
	}
}
