package browserpool

import (
	"math"
	"sync"
	"time"
)

// instanceHandle tracks one browser process's health so the pool can decide
// when to retire and relaunch it. The scoring rule mirrors a simple
// error-budget counter: every failed lease nudges the score up, every
// successful one nudges it back down, and the instance is retired once it
// crosses any of three thresholds (error budget, contexts served, age).
type instanceHandle struct {
	mu              sync.Mutex
	errScore        float64
	contextsServed  int
	created         time.Time
	disconnected    bool
}

func newInstanceHandle() *instanceHandle {
	return &instanceHandle{created: time.Now()}
}

func (h *instanceHandle) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contextsServed++
	h.errScore = math.Max(0, h.errScore-0.5)
}

func (h *instanceHandle) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contextsServed++
	h.errScore += 1.0
}

func (h *instanceHandle) markDisconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = true
}

// shouldRetire reports whether the instance has served enough contexts,
// aged out, accumulated enough failures, or disconnected outright.
func (h *instanceHandle) shouldRetire(maxPagesPerBrowser int, maxAge time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disconnected {
		return true
	}
	if h.errScore >= 3.0 {
		return true
	}
	if maxPagesPerBrowser > 0 && h.contextsServed >= maxPagesPerBrowser {
		return true
	}
	if maxAge > 0 && time.Since(h.created) >= maxAge {
		return true
	}
	return false
}

func (h *instanceHandle) served() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.contextsServed
}
