package queue

import (
	"context"
	"time"

	"github.com/use-agent/webauditor/model"
)

// progressLoop emits a progress snapshot on every tick of ProgressInterval
// until the queue drains or ctx is done. Completion-triggered progress
// events are published directly by the worker's own completion path,
// right after each terminal url-completed/url-failed event; this loop
// only covers the periodic half of progress reporting.
func (q *Queue) progressLoop(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case <-ticker.C:
			q.publish(model.Event{
				Type:      model.EventProgress,
				Timestamp: time.Now(),
				Payload:   model.ProgressPayload{Stats: q.Stats()},
			})
		}
	}
}

// backpressureLoop polls resource usage against the soft ceilings and
// pauses/resumes dispatch, emitting a resource-warning event on each state
// transition. Pausing only stops dequeue; in-flight tasks keep running.
func (q *Queue) backpressureLoop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case <-ticker.C:
			stats := q.Stats()
			over := stats.MemoryUsageMB > q.cfg.SoftMemCeilingMB ||
				stats.CPUUsagePercent > q.cfg.SoftCPUCeilingPct

			if over && q.paused.CompareAndSwap(false, true) {
				q.publish(model.Event{
					Type:      model.EventResourceWarning,
					Timestamp: time.Now(),
					Payload:   model.ResourceWarningPayload{Entering: true, Reason: "soft resource ceiling exceeded"},
				})
			} else if !over && q.paused.CompareAndSwap(true, false) {
				q.publish(model.Event{
					Type:      model.EventResourceWarning,
					Timestamp: time.Now(),
					Payload:   model.ResourceWarningPayload{Entering: false, Reason: "usage back under ceiling"},
				})
			}
		}
	}
}

// maybeEmitQueueEmpty publishes EventQueueEmpty exactly once, the first
// time every task has reached a terminal state.
func (q *Queue) maybeEmitQueueEmpty() {
	if q.pending.Load() != 0 || q.inFlight.Load() != 0 || q.retrying.Load() != 0 {
		return
	}
	if q.queueEmptyDone.CompareAndSwap(false, true) {
		q.publish(model.Event{
			Type:      model.EventQueueEmpty,
			Timestamp: time.Now(),
		})
	}
}
