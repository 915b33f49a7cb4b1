package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a unit of side-effect work: a realtime emit, a notification write or
// a push. Retries is the number of extra attempts after the first failure.
type Job struct {
	Name    string
	Retries int
	Run     func(ctx context.Context) error
}

// DispatcherStats are cumulative job counters
type DispatcherStats struct {
	Enqueued  int64 `json:"enqueued"`
	Inline    int64 `json:"inline"`
	Delivered int64 `json:"delivered"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
	Pending   int   `json:"pending"`
}

// Dispatcher runs side effects off the request path on a bounded queue.
// When the queue is full the job runs on the caller's goroutine instead of
// being dropped. With zero workers every job runs inline.
type Dispatcher struct {
	queue   chan Job
	workers int
	backoff time.Duration
	timeout time.Duration

	wg sync.WaitGroup
	// mu orders Submit's enqueue against Shutdown so that nothing lands in
	// the queue after the workers have drained it
	mu      sync.RWMutex
	stopped bool
	closed  chan struct{}

	enqueued  atomic.Int64
	inline    atomic.Int64
	delivered atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// NewDispatcher creates a dispatcher. Call Start before submitting.
func NewDispatcher(queueSize, workers int) *Dispatcher {
	if queueSize < 0 {
		queueSize = 0
	}
	return &Dispatcher{
		queue:   make(chan Job, queueSize),
		workers: workers,
		backoff: 100 * time.Millisecond,
		timeout: 15 * time.Second,
		closed:  make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	if d.workers > 0 {
		log.Printf("Delivery dispatcher started with %d workers, queue size %d", d.workers, cap(d.queue))
	}
}

// Submit queues a job, running it inline when the queue is full, closed or
// has no workers
func (d *Dispatcher) Submit(job Job) {
	if d.workers > 0 && d.enqueue(job) {
		return
	}
	d.inline.Add(1)
	d.execute(job)
}

func (d *Dispatcher) enqueue(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}
	select {
	case d.queue <- job:
		d.enqueued.Add(1)
		return true
	default:
		log.Printf("Delivery queue full, running %s inline", job.Name)
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.execute(job)
		case <-d.closed:
			// drain what is left, then stop
			for {
				select {
				case job := <-d.queue:
					d.execute(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) execute(job Job) {
	var err error
	for attempt := 0; attempt <= job.Retries; attempt++ {
		if attempt > 0 {
			d.retried.Add(1)
			time.Sleep(d.backoff * time.Duration(attempt))
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err = job.Run(ctx)
		cancel()
		if err == nil {
			d.delivered.Add(1)
			return
		}
	}
	d.failed.Add(1)
	log.Printf("Failed to deliver %s: %v", job.Name, err)
}

// Shutdown stops accepting queued work and waits for the queue to drain
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.closed)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Enqueued:  d.enqueued.Load(),
		Inline:    d.inline.Load(),
		Delivered: d.delivered.Load(),
		Retried:   d.retried.Load(),
		Failed:    d.failed.Load(),
		Pending:   len(d.queue),
	}
}
