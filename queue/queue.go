// Package queue implements the bounded-concurrency FIFO scheduler that
// drives the orchestrator over a URL list, with retries, backoff,
// progress reporting, soft backpressure, and cancellation.
package queue

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/webauditor/model"
)

// EventSink receives the queue's lifecycle events, implemented by the
// event bus.
type EventSink interface {
	Publish(model.Event)
}

// Handler runs one URL to completion. It must always return a non-nil
// result (the orchestrator's own contract) plus whether the outcome, if
// a failure, should be retried.
type Handler func(ctx context.Context, url string) (*model.PageResult, bool)

// Config enumerates the queue's tunables, per the work queue's parameter
// list.
type Config struct {
	MaxConcurrent      int
	MaxRetries         int
	RetryBackoffBaseMs int
	PerTaskTimeoutMs   int
	ProgressInterval   time.Duration
	SoftMemCeilingMB   float64
	SoftCPUCeilingPct  float64
}

func (c *Config) defaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoffBaseMs <= 0 {
		c.RetryBackoffBaseMs = 2000
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 2 * time.Second
	}
	if c.SoftMemCeilingMB <= 0 {
		c.SoftMemCeilingMB = 512
	}
	if c.SoftCPUCeilingPct <= 0 {
		c.SoftCPUCeilingPct = 80
	}
}

// Queue is a single-leader, in-memory FIFO over URL tasks.
type Queue struct {
	cfg     Config
	handler Handler
	events  EventSink

	mu    sync.Mutex
	fifo  []*model.URLTask
	byURL map[string]*model.URLTask // latest task record per URL, for stats

	total     int
	pending   atomic.Int64
	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	retrying  atomic.Int64

	durationsMu sync.Mutex
	durations   []time.Duration

	cancelled      atomic.Bool
	paused         atomic.Bool
	queueEmptyDone atomic.Bool

	limiter *rate.Limiter

	results sync.Map // url -> *model.PageResult
	wg      sync.WaitGroup
	done    chan struct{}
}

// New builds a queue. handler is invoked once per attempt.
func New(cfg Config, handler Handler, events EventSink) *Queue {
	cfg.defaults()
	q := &Queue{
		cfg:     cfg,
		handler: handler,
		events:  events,
		byURL:   make(map[string]*model.URLTask),
		// A generous default dispatch rate: the real bound on concurrency
		// is the worker pool below, not this limiter. The limiter exists so
		// a future caller can throttle burst dispatch (e.g. very large
		// sitemaps) without changing worker count.
		limiter: rate.NewLimiter(rate.Limit(1000), cfg.MaxConcurrent*2),
		done:    make(chan struct{}),
	}
	return q
}

// Run enqueues every URL, starts MaxConcurrent workers, waits for the
// queue to drain (or be cancelled), and returns one PageResult per input
// URL in the original order.
func (q *Queue) Run(ctx context.Context, urls []string) []*model.PageResult {
	q.total = len(urls)
	q.pending.Store(int64(len(urls)))

	for _, u := range urls {
		task := &model.URLTask{URL: u, State: model.StatePending, EnqueuedAt: time.Now()}
		q.mu.Lock()
		q.byURL[u] = task
		q.fifo = append(q.fifo, task)
		q.mu.Unlock()
	}

	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		q.progressLoop(ctx)
	}()

	var backpressureWg sync.WaitGroup
	backpressureWg.Add(1)
	go func() {
		defer backpressureWg.Done()
		q.backpressureLoop(ctx)
	}()

	for i := 0; i < q.cfg.MaxConcurrent; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.wg.Wait()
	close(q.done)
	progressWg.Wait()
	backpressureWg.Wait()

	q.maybeEmitQueueEmpty()

	out := make([]*model.PageResult, len(urls))
	for i, u := range urls {
		if v, ok := q.results.Load(u); ok {
			out[i] = v.(*model.PageResult)
		}
	}
	return out
}

// Cancel stops dispatch of new tasks: from then on every task a worker
// takes from the FIFO is recorded as cancelled instead of started. Cancel
// does not itself kill in-flight work — the caller's ctx cancellation
// (passed to Run) is what actually interrupts the handler; in-flight tasks
// run to their own end and are recorded with their own result. After
// grace, any task still left in the FIFO is marked cancelled.
func (q *Queue) Cancel(grace time.Duration) {
	q.cancelled.Store(true)

	time.AfterFunc(grace, func() {
		q.mu.Lock()
		remaining := q.fifo
		q.fifo = nil
		q.mu.Unlock()

		for _, task := range remaining {
			task.State = model.StateCancelled
			task.FinishedAt = time.Now()
			q.pending.Add(-1)
			q.results.Store(task.URL, cancelledResult(task.URL))
		}
	})
}

func cancelledResult(url string) *model.PageResult {
	return &model.PageResult{
		URL:       url,
		FinalURL:  url,
		Status:    model.StatusFailed,
		Error:     "cancelled",
		Timestamp: time.Now(),
	}
}

// Stats returns a point-in-time snapshot of queue counters.
func (q *Queue) Stats() model.QueueStats {
	completed := q.completed.Load()
	failed := q.failed.Load()
	done := completed + failed

	avg := q.averageDurationMs()
	remaining := q.pending.Load() + q.inFlight.Load() + q.retrying.Load()
	var eta float64
	if avg > 0 {
		workers := float64(q.cfg.MaxConcurrent)
		if workers < 1 {
			workers = 1
		}
		eta = avg * float64(remaining) / workers
	}

	var progressPct float64
	if q.total > 0 {
		progressPct = 100 * float64(done) / float64(q.total)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return model.QueueStats{
		Total:                q.total,
		Pending:              int(q.pending.Load()),
		InFlight:             int(q.inFlight.Load()),
		Completed:            int(completed),
		Failed:               int(failed),
		Retrying:             int(q.retrying.Load()),
		ProgressPercent:      progressPct,
		AverageDurationMs:    avg,
		EstimatedRemainingMs: eta,
		ActiveWorkers:        int(q.inFlight.Load()),
		MemoryUsageMB:        float64(mem.Alloc) / (1024 * 1024),
		// CPU percent has no accurate stdlib source; approximated from
		// worker saturation since no process-metrics library appears
		// anywhere in the reference pack.
		CPUUsagePercent: 100 * float64(q.inFlight.Load()) / float64(max(q.cfg.MaxConcurrent, 1)),
	}
}

// Task returns a point-in-time copy of one URL's task record, for status
// endpoints that need per-URL state rather than the aggregate Stats().
func (q *Queue) Task(url string) (model.URLTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.byURL[url]
	if !ok {
		return model.URLTask{}, false
	}
	return *t, true
}

func (q *Queue) averageDurationMs() float64 {
	q.durationsMu.Lock()
	defer q.durationsMu.Unlock()
	if len(q.durations) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range q.durations {
		sum += d
	}
	return float64(sum.Milliseconds()) / float64(len(q.durations))
}

func (q *Queue) recordDuration(d time.Duration) {
	q.durationsMu.Lock()
	q.durations = append(q.durations, d)
	q.durationsMu.Unlock()
}
