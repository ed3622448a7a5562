package status

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ASYNC NOTIFIER WITH DROP-ON-FULL SEMANTICS
// =============================================================================
//
// AsyncNotifier decouples event producers from the sink with a buffered
// queue. When the buffer is full the event is dropped, never the caller's
// time: orchestration latency must not depend on sink health.

// QueueConfig configures the async notifier.
type QueueConfig struct {
	QueueSize    int           // Buffered event capacity; events beyond it drop
	DrainTimeout time.Duration // Max wait for the worker during Stop
}

// DefaultQueueConfig returns sensible defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		QueueSize:    64,
		DrainTimeout: 5 * time.Second,
	}
}

// QueueMetrics is a point-in-time snapshot of queue activity.
type QueueMetrics struct {
	Notified  int64
	Delivered int64
	Dropped   int64
}

// AsyncNotifier runs one worker goroutine that feeds events to the sink.
type AsyncNotifier struct {
	mu sync.RWMutex

	events chan Event
	config QueueConfig
	sink   Sink
	logger *zap.Logger

	isRunning bool
	stopCh    chan struct{}
	workerWg  sync.WaitGroup

	// Metrics (atomic for lock-free reads)
	totalNotified  int64
	totalDelivered int64
	totalDropped   int64
}

// NewAsyncNotifier creates an async notifier feeding sink.
func NewAsyncNotifier(sink Sink, cfg QueueConfig, logger *zap.Logger) *AsyncNotifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncNotifier{
		events: make(chan Event, cfg.QueueSize),
		config: cfg,
		sink:   sink,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins delivering queued events.
func (an *AsyncNotifier) Start() error {
	an.mu.Lock()
	defer an.mu.Unlock()

	if an.isRunning {
		return nil
	}
	an.isRunning = true
	an.stopCh = make(chan struct{})

	an.workerWg.Add(1)
	go an.worker()

	an.logger.Debug("status queue started",
		zap.Int("queue_size", an.config.QueueSize))
	return nil
}

// Stop shuts the queue down, delivering whatever is still buffered.
func (an *AsyncNotifier) Stop() error {
	an.mu.Lock()
	if !an.isRunning {
		an.mu.Unlock()
		return nil
	}
	an.isRunning = false
	close(an.stopCh)
	an.mu.Unlock()

	done := make(chan struct{})
	go func() {
		an.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		an.logger.Debug("status queue drained")
	case <-time.After(an.config.DrainTimeout):
		an.logger.Warn("status queue drain timeout exceeded")
	}
	return nil
}

// Notify enqueues an event. It never blocks: with the buffer full or the
// queue stopped, the event is counted as dropped and the call returns.
func (an *AsyncNotifier) Notify(category, message string, data map[string]any) {
	an.mu.RLock()
	running := an.isRunning
	an.mu.RUnlock()
	if !running {
		atomic.AddInt64(&an.totalDropped, 1)
		return
	}

	ev := Event{
		Category: category,
		Message:  message,
		Data:     data,
		Time:     time.Now(),
	}

	select {
	case an.events <- ev:
		atomic.AddInt64(&an.totalNotified, 1)
	default:
		atomic.AddInt64(&an.totalDropped, 1)
	}
}

// Metrics returns a snapshot of queue activity.
func (an *AsyncNotifier) Metrics() QueueMetrics {
	return QueueMetrics{
		Notified:  atomic.LoadInt64(&an.totalNotified),
		Delivered: atomic.LoadInt64(&an.totalDelivered),
		Dropped:   atomic.LoadInt64(&an.totalDropped),
	}
}

func (an *AsyncNotifier) worker() {
	defer an.workerWg.Done()

	for {
		select {
		case <-an.stopCh:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case ev := <-an.events:
					an.deliver(ev)
				default:
					return
				}
			}
		case ev := <-an.events:
			an.deliver(ev)
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event
// only; the worker keeps running.
func (an *AsyncNotifier) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&an.totalDropped, 1)
			an.logger.Warn("status sink panicked",
				zap.Any("panic", r),
				zap.String("category", ev.Category))
		}
	}()

	an.sink.Deliver(ev)
	atomic.AddInt64(&an.totalDelivered, 1)
}

var _ Notifier = (*AsyncNotifier)(nil)
