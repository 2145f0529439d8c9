package model

import "time"

// EventType enumerates the event bus's closed set of event kinds.
type EventType string

const (
	EventURLStarted      EventType = "url-started"
	EventURLCompleted    EventType = "url-completed"
	EventURLFailed       EventType = "url-failed"
	EventProgress        EventType = "progress"
	EventQueueEmpty       EventType = "queue-empty"
	EventResourceWarning EventType = "resource-warning"
	EventAnalyzerWarning EventType = "analyzer-warning"
)

// Event is one entry on the ordered event stream. Payload's concrete type
// depends on EventType (the *Payload structs below); subscribers
// type-assert it, and callers that only need to log or forward events can
// treat it opaquely.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// URLStartedPayload accompanies EventURLStarted.
type URLStartedPayload struct {
	URL      string
	Attempt  int
}

// URLCompletedPayload accompanies EventURLCompleted.
type URLCompletedPayload struct {
	URL    string
	Result *PageResult
}

// URLFailedPayload accompanies EventURLFailed. Terminal reports whether
// this is the task's final outcome (no further retry will be attempted).
type URLFailedPayload struct {
	URL       string
	Attempt   int
	Err       error
	Terminal  bool
}

// ProgressPayload accompanies EventProgress.
type ProgressPayload struct {
	Stats QueueStats
}

// ResourceWarningPayload accompanies EventResourceWarning.
type ResourceWarningPayload struct {
	Entering bool // true = entering paused state, false = leaving it
	Reason   string
}

// AnalyzerWarningPayload accompanies EventAnalyzerWarning.
type AnalyzerWarningPayload struct {
	URL      string
	Analyzer string
	Err      error
}
