package scan

import (
	"sync"
	"time"

	"github.com/avezina/chatscan/internal/domain"
)

// Sink receives flushed log entries in emission order.
type Sink func(domain.LogEntry)

// logBuffer batches log entries so the consumer is not redrawn on every
// emission. A ticker drains it on a fixed interval; Flush is also called
// on every terminal path of a scan, so nothing stays stuck in the queue.
// Delivery is bounded-latency and lossless, never reordered.
type logBuffer struct {
	sink     Sink
	interval time.Duration

	mu      sync.Mutex
	pending []domain.LogEntry
	stop    chan struct{}
	done    chan struct{}
}

func newLogBuffer(sink Sink, interval time.Duration) *logBuffer {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &logBuffer{sink: sink, interval: interval}
}

func (b *logBuffer) Append(entry domain.LogEntry) {
	b.mu.Lock()
	b.pending = append(b.pending, entry)
	b.mu.Unlock()
}

// Flush delivers everything queued so far, in order.
func (b *logBuffer) Flush() {
	b.mu.Lock()
	drained := b.pending
	b.pending = nil
	b.mu.Unlock()

	if b.sink == nil {
		return
	}
	for _, entry := range drained {
		b.sink(entry)
	}
}

// Start launches the ticker goroutine. Stop ends it after a final flush.
func (b *logBuffer) Start() {
	b.mu.Lock()
	if b.stop != nil {
		b.mu.Unlock()
		return
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	stop, done := b.stop, b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Flush()
			case <-stop:
				b.Flush()
				return
			}
		}
	}()
}

func (b *logBuffer) Stop() {
	b.mu.Lock()
	stop, done := b.stop, b.done
	b.stop = nil
	b.done = nil
	b.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
