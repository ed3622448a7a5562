// Package status carries orchestration progress events to an external sink.
// Emission is fire-and-forget: a slow or panicking sink can never block or
// destabilize the orchestration path.
package status

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one progress notification.
type Event struct {
	Category string
	Message  string
	Data     map[string]any
	Time     time.Time
}

// Notifier receives progress events. Notify must return promptly and must
// never panic into the caller.
type Notifier interface {
	Notify(category, message string, data map[string]any)
}

// Sink consumes events on the delivery side of the queue.
type Sink interface {
	Deliver(ev Event)
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) Notify(category, message string, data map[string]any) {}

var _ Notifier = NopNotifier{}

// ZapSink writes events to a structured logger.
type ZapSink struct {
	Logger *zap.Logger
}

func (s ZapSink) Deliver(ev Event) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info(ev.Message,
		zap.String("category", ev.Category),
		zap.Any("data", ev.Data),
		zap.Time("at", ev.Time))
}

var _ Sink = ZapSink{}

// CollectorSink records every delivered event, for tests and CLI display.
type CollectorSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *CollectorSink) Deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything delivered so far.
func (s *CollectorSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

var _ Sink = (*CollectorSink)(nil)
