// Package persist writes item collection snapshots to durable storage in the
// background, keeping only the most recent snapshot when writes fall behind.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Default writer settings.
const (
	DefaultMaxRetries    = 2
	DefaultRetryInterval = 50 * time.Millisecond
)

// maxIntervalFactor caps the retry interval at this multiple of the initial one.
const maxIntervalFactor = 8

// Prometheus metrics.
var (
	persistWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_persist_writes_total",
			Help: "Total number of snapshot writes by result",
		},
		[]string{"result"},
	)

	persistWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inventory_persist_write_duration_seconds",
			Help:    "Snapshot write duration in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	persistSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_persist_superseded_total",
			Help: "Snapshots replaced by a newer one before they were written",
		},
	)
)

// Saver replaces the stored collection.
type Saver interface {
	Save(ctx context.Context, items []model.Item) error
}

// Options tunes retry behaviour.
type Options struct {
	// MaxRetries is the number of extra attempts after a failed write.
	MaxRetries uint
	// RetryInterval is the delay before the first retry.
	RetryInterval time.Duration
}

// Writer persists snapshots on its own goroutine. Enqueue never blocks.
type Writer struct {
	saver  Saver
	logger *zap.Logger
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
	wg     conc.WaitGroup

	mu       sync.Mutex
	pending  *model.Snapshot
	latest   uint64
	busy     bool
	idle     chan struct{}
	closed   bool
	stopOnce sync.Once
}

// NewWriter creates a Writer and starts its goroutine.
func NewWriter(saver Saver, logger *zap.Logger, opts Options) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	w := &Writer{
		saver:  saver,
		logger: logger,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		idle:   idle,
	}

	w.wg.Go(w.run)
	return w
}

// Enqueue schedules snap to be written. A snapshot older than one already
// accepted is ignored, and a pending snapshot is replaced by a newer one.
func (w *Writer) Enqueue(snap model.Snapshot) {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("writer closed, snapshot dropped", zap.Uint64("revision", snap.Revision))
		return
	}
	if snap.Revision <= w.latest {
		w.mu.Unlock()
		return
	}

	if w.pending != nil {
		persistSupersededTotal.Inc()
	}
	w.latest = snap.Revision
	w.pending = &snap
	if !w.busy {
		w.busy = true
		w.idle = make(chan struct{})
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every accepted snapshot has been written or given up on.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting snapshots, waits for the pending one to be written,
// and stops the goroutine. If ctx expires first, in-flight retries are
// abandoned and the unwritten snapshot is dropped.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	if err != nil {
		w.logger.Error("writer did not drain before shutdown", zap.Error(err))
	}

	w.stopOnce.Do(func() {
		w.cancel()
		close(w.done)
	})
	w.wg.Wait()

	return err
}

// run is the writer loop.
func (w *Writer) run() {
	for {
		select {
		case <-w.done:
			w.mu.Lock()
			if w.pending != nil {
				w.logger.Warn("unsaved snapshot dropped", zap.Uint64("revision", w.pending.Revision))
			}
			w.mu.Unlock()
			return
		case <-w.wake:
			w.drain()
		}
	}
}

// drain writes pending snapshots until none is left.
func (w *Writer) drain() {
	for {
		w.mu.Lock()
		snap := w.pending
		w.pending = nil
		if snap == nil {
			if w.busy {
				w.busy = false
				close(w.idle)
			}
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.write(*snap)
	}
}

// write saves one snapshot with bounded retries. Failures are logged and
// counted, never returned.
func (w *Writer) write(snap model.Snapshot) {
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.RetryInterval
	b.MaxInterval = w.opts.RetryInterval * maxIntervalFactor

	attempts := 0
	_, err := backoff.Retry(w.ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, w.saver.Save(w.ctx, snap.Items)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(w.opts.MaxRetries+1),
	)

	persistWriteDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		persistWritesTotal.WithLabelValues("error").Inc()
		w.logger.Error("failed to persist items",
			zap.Uint64("revision", snap.Revision),
			zap.Int("items", len(snap.Items)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}

	persistWritesTotal.WithLabelValues("ok").Inc()
	w.logger.Debug("items persisted",
		zap.Uint64("revision", snap.Revision),
		zap.Int("items", len(snap.Items)),
		zap.Int("attempts", attempts),
	)
}
