// Package model holds the engine's closed data shapes: URL tasks, queue
// statistics, the composite page result and its sections, browser leases,
// events, and run options. Analyzers and the orchestrator return values
// shaped by this package, never a loose map.
package model

import "time"

// TaskState is a URL task's position in its state machine.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateInFlight  TaskState = "in-flight"
	StateRetrying  TaskState = "retrying"
	StateCompleted TaskState = "completed"
	StateFailed    TaskState = "failed"
	StateCancelled TaskState = "cancelled"
)

// URLTask tracks one URL through the work queue. It is created once by the
// facade and mutated only by the worker goroutine that currently owns it.
type URLTask struct {
	URL         string
	Attempts    int
	State       TaskState
	EnqueuedAt  time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	LastError   string
}

// QueueStats is a point-in-time derived snapshot, safe to copy by value.
type QueueStats struct {
	Total                int
	Pending              int
	InFlight             int
	Completed            int
	Failed               int
	Retrying             int
	ProgressPercent      float64
	AverageDurationMs    float64
	EstimatedRemainingMs float64
	ActiveWorkers        int
	MemoryUsageMB        float64
	CPUUsagePercent      float64
}
