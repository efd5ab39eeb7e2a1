package prefs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"timesheet/internal/metrics"
)

type writeJob struct {
	name string
	fn   func(ctx context.Context) error
	done chan struct{}
}

// Writer applies persistence writes one at a time, in submission order, on a
// background goroutine. Failures are logged and dropped.
type Writer struct {
	jobs    chan writeJob
	log     logrus.FieldLogger
	timeout time.Duration

	submitted atomic.Uint64
	applied   atomic.Uint64

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	drained chan struct{}
}

// NewWriter starts a writer whose queue holds up to buffer pending writes.
func NewWriter(log logrus.FieldLogger, buffer int) *Writer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if buffer <= 0 {
		buffer = 64
	}
	w := &Writer{
		jobs:    make(chan writeJob, buffer),
		log:     log,
		timeout: 10 * time.Second,
		drained: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit queues fn. It returns once the write is queued, not applied.
func (w *Writer) Submit(name string, fn func(ctx context.Context) error) {
	w.enqueue(writeJob{name: name, fn: fn})
}

// Flush waits until every write submitted before it has been attempted. On
// a closed writer it waits for the remaining queue to drain.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !w.enqueue(writeJob{name: "flush", done: done}) {
		done = w.drained
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many writes have been queued so far and whether all
// of them have been attempted.
func (w *Writer) Pending() (submitted uint64, idle bool) {
	applied := w.applied.Load()
	submitted = w.submitted.Load()
	return submitted, applied == submitted
}

// Submitted reports how many writes have been queued so far.
func (w *Writer) Submitted() uint64 { return w.submitted.Load() }

// Close stops accepting writes and waits for the queue to drain.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Writer) enqueue(job writeJob) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		if job.fn != nil {
			w.log.WithField("write", job.name).Warn("preference writer closed, dropping write")
		}
		return false
	}
	if job.fn != nil {
		w.submitted.Add(1)
	}
	w.jobs <- job
	return true
}

func (w *Writer) run() {
	defer w.wg.Done()
	defer close(w.drained)
	for job := range w.jobs {
		if job.fn != nil {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			if err := job.fn(ctx); err != nil {
				metrics.PrefWriteFailures.Inc()
				w.log.WithError(err).WithField("write", job.name).Error("preference write failed")
			}
			cancel()
			w.applied.Add(1)
		}
		if job.done != nil {
			close(job.done)
		}
	}
}
