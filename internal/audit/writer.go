package audit

import (
	"context"
	"sync"
	"time"

	"github.com/supgate-ai/supgate/internal/redact"
)

// Sink consumes audit rows (file, stdout, etc.).
type Sink interface {
	Name() string
	Deliver(context.Context, *Row) error
	Close(context.Context) error
}

// Metrics holds delivery counters.
type Metrics struct {
	enqueued    uint64
	dropped     uint64
	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64
}

func (m *Metrics) Enqueued() uint64 { return m.enqueued }
func (m *Metrics) Dropped() uint64  { return m.dropped }
func (m *Metrics) SinkSuccess(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkSuccess[name]
}
func (m *Metrics) SinkFailure(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkFailure[name]
}

func (m *Metrics) snapshot() Metrics {
	out := Metrics{
		enqueued:    m.enqueued,
		dropped:     m.dropped,
		sinkSuccess: make(map[string]uint64, len(m.sinkSuccess)),
		sinkFailure: make(map[string]uint64, len(m.sinkFailure)),
	}
	for k, v := range m.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range m.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}

// Writer buffers rows on a bounded queue and delivers them to sinks from
// background workers. When the queue is full the row is dropped, never
// blocking the caller.
type Writer struct {
	queue           chan *Row
	sinks           []Sink
	metrics         *Metrics
	shutdownTimeout time.Duration

	mu        sync.RWMutex
	metricsMu sync.Mutex
	closed    bool
	wg        sync.WaitGroup
}

// WriterConfig controls queue and worker sizing.
type WriterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// NewWriter starts background workers delivering rows to the given sinks.
func NewWriter(cfg WriterConfig, sinks []Sink) *Writer {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 2 * time.Second
	}

	m := &Metrics{
		sinkSuccess: make(map[string]uint64, len(sinks)),
		sinkFailure: make(map[string]uint64, len(sinks)),
	}
	for _, s := range sinks {
		m.sinkSuccess[s.Name()] = 0
		m.sinkFailure[s.Name()] = 0
	}

	w := &Writer{
		queue:           make(chan *Row, queueSize),
		sinks:           sinks,
		metrics:         m,
		shutdownTimeout: shutdownTimeout,
	}

	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}

	return w
}

// Append enqueues the row without blocking. Rows are dropped when the
// writer is closed or the queue is full.
func (w *Writer) Append(row *Row) {
	if w == nil || row == nil {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.countDrop()
		return
	}

	select {
	case w.queue <- row:
		w.metricsMu.Lock()
		w.metrics.enqueued++
		w.metricsMu.Unlock()
	default:
		w.countDrop()
	}
}

// Close stops accepting rows and waits briefly to drain the queue.
func (w *Writer) Close(ctx context.Context) {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	waitCtx := ctx
	if waitCtx == nil {
		waitCtx = context.Background()
	}
	var cancel context.CancelFunc
	waitCtx, cancel = context.WithTimeout(waitCtx, w.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
	}

	for _, s := range w.sinks {
		if err := s.Close(waitCtx); err != nil {
			redact.Logf("audit: sink %s close error: %v", s.Name(), err)
		}
	}
}

// MetricsSnapshot copies the current counters.
func (w *Writer) MetricsSnapshot() Metrics {
	if w == nil || w.metrics == nil {
		return Metrics{}
	}
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics.snapshot()
}

func (w *Writer) countDrop() {
	w.metricsMu.Lock()
	w.metrics.dropped++
	w.metricsMu.Unlock()
}

func (w *Writer) worker() {
	defer w.wg.Done()
	for row := range w.queue {
		w.deliver(row)
	}
}

// deliver fans the row out to every sink. Sink failures are counted and
// otherwise discarded; the audit path must never raise.
func (w *Writer) deliver(row *Row) {
	for _, s := range w.sinks {
		if err := s.Deliver(context.Background(), row); err != nil {
			w.metricsMu.Lock()
			w.metrics.sinkFailure[s.Name()]++
			w.metricsMu.Unlock()
			continue
		}
		w.metricsMu.Lock()
		w.metrics.sinkSuccess[s.Name()]++
		w.metricsMu.Unlock()
	}
}
