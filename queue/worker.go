package queue

import (
	"context"
	"math/rand"
	"time"

	"github.com/use-agent/webauditor/model"
)

// worker is a single dispatch loop: dequeue, mark in-flight, run the
// handler, re-enqueue on retriable failure or emit a terminal event.
// Grounded on the worker-pool shape of a scheduler that polls a shared
// frontier under a pause flag and an idle counter.
func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		task := q.dequeue(ctx)
		if task == nil {
			return // drained, or context done
		}

		if err := q.limiter.Wait(ctx); err != nil {
			q.finishCancelled(task)
			return
		}

		task.Attempts++
		task.State = model.StateInFlight
		task.StartedAt = time.Now()
		q.pending.Add(-1)
		q.inFlight.Add(1)

		q.publish(model.Event{
			Type:      model.EventURLStarted,
			Timestamp: time.Now(),
			Payload:   model.URLStartedPayload{URL: task.URL, Attempt: task.Attempts},
		})

		taskCtx := ctx
		var cancel context.CancelFunc
		if q.cfg.PerTaskTimeoutMs > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, time.Duration(q.cfg.PerTaskTimeoutMs)*time.Millisecond)
		}
		result, retriable := q.handler(taskCtx, task.URL)
		if cancel != nil {
			cancel()
		}

		q.inFlight.Add(-1)
		duration := time.Since(task.StartedAt)
		q.recordDuration(duration)

		// StatusHTTPError is included here: most HTTP error statuses are
		// terminal (handler returns retriable=false for them and they fall
		// through to the completed branch below unchanged), but 408/429 are
		// transient and come back with retriable=true so they get a retry
		// instead of being reported as a settled page result.
		terminalFailure := result.Status != model.StatusPassed &&
			result.Status != model.StatusSkippedRedirect

		if terminalFailure && retriable && task.Attempts <= q.cfg.MaxRetries {
			q.scheduleRetry(task, result)
			continue
		}

		task.FinishedAt = time.Now()
		q.results.Store(task.URL, result)

		switch result.Status {
		case model.StatusPassed, model.StatusSkippedRedirect, model.StatusHTTPError:
			task.State = model.StateCompleted
			q.completed.Add(1)
			q.publish(model.Event{
				Type:      model.EventURLCompleted,
				Timestamp: time.Now(),
				Payload:   model.URLCompletedPayload{URL: task.URL, Result: result},
			})
		default:
			task.State = model.StateFailed
			q.failed.Add(1)
			q.publish(model.Event{
				Type:      model.EventURLFailed,
				Timestamp: time.Now(),
				Payload: model.URLFailedPayload{
					URL: task.URL, Attempt: task.Attempts, Terminal: true,
				},
			})
		}
		q.publish(model.Event{
			Type:      model.EventProgress,
			Timestamp: time.Now(),
			Payload:   model.ProgressPayload{Stats: q.Stats()},
		})
	}
}

// scheduleRetry re-enqueues the task at the tail after an exponential
// backoff with jitter, per the retry parameter table (base 2000ms x
// 2^attempt).
func (q *Queue) scheduleRetry(task *model.URLTask, result *model.PageResult) {
	task.State = model.StateRetrying
	q.retrying.Add(1)
	q.publish(model.Event{
		Type:      model.EventURLFailed,
		Timestamp: time.Now(),
		Payload: model.URLFailedPayload{
			URL: task.URL, Attempt: task.Attempts, Terminal: false,
		},
	})

	base := time.Duration(q.cfg.RetryBackoffBaseMs) * time.Millisecond
	backoff := base * time.Duration(1<<uint(task.Attempts-1))
	jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))
	delay := backoff + jitter

	go func() {
		time.Sleep(delay)
		q.retrying.Add(-1)
		q.pending.Add(1)
		task.State = model.StatePending

		q.mu.Lock()
		q.fifo = append(q.fifo, task)
		q.mu.Unlock()
	}()
}

func (q *Queue) finishCancelled(task *model.URLTask) {
	task.State = model.StateCancelled
	task.FinishedAt = time.Now()
	q.pending.Add(-1)
	q.results.Store(task.URL, cancelledResult(task.URL))
}

// dequeue blocks until a task is available, every task has reached a
// terminal state (completed/failed/cancelled, with nothing left
// in-flight or awaiting a retry backoff), or ctx is done. Grounded on
// the scheduler's own worker loop (TryPop + brief sleep rather than a
// blocking channel receive, since the queue gains tasks both from
// initial enqueue and from retry backoffs firing at arbitrary times).
func (q *Queue) dequeue(ctx context.Context) *model.URLTask {
	for {
		q.mu.Lock()
		if len(q.fifo) > 0 && q.cancelled.Load() {
			task := q.fifo[0]
			q.fifo = q.fifo[1:]
			q.mu.Unlock()
			q.finishCancelled(task)
			continue
		}
		if len(q.fifo) > 0 && !q.paused.Load() {
			task := q.fifo[0]
			q.fifo = q.fifo[1:]
			q.mu.Unlock()
			return task
		}
		drained := len(q.fifo) == 0 &&
			q.retrying.Load() == 0 && q.inFlight.Load() == 0
		q.mu.Unlock()

		if drained {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (q *Queue) publish(e model.Event) {
	if q.events != nil {
		q.events.Publish(e)
	}
}
