package model

import "time"

// BrowserLease is handed to a worker for the duration of one URL test. It
// is exclusively owned by that worker; ReleaseFn must be called exactly
// once, from a defer, regardless of how the call returns.
type BrowserLease struct {
	BrowserID string
	ContextID string
	AcquiredAt time.Time
	ReleaseFn func(success bool)
}
