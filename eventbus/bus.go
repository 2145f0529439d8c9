// Package eventbus implements the single ordered lifecycle-event stream
// that the work queue and orchestrator publish to, and that CLI/API
// consumers and the webhook subscriber read from.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/use-agent/webauditor/model"
)

// Callback is a subscriber's handler for one event. It must not block for
// long: delivery is synchronous, in the publisher's own goroutine, so
// ordering is preserved; a subscriber that needs asynchronous work should
// copy the event and dispatch it on its own schedule (the webhook
// subscriber does exactly this).
type Callback func(model.Event)

// Bus is the canonical event stream. The zero value is not usable; build
// one with New.
type Bus struct {
	mu   sync.Mutex
	subs map[model.EventType][]Callback
	all  []Callback

	suppressDeprecations bool
	deprecatedMu         sync.Mutex
	deprecatedSeen       map[string]bool
}

// New builds a bus. suppressDeprecations mirrors the CI/NODE_ENV/
// AUDITMYSITE_SUPPRESS_DEPRECATIONS env signals the CLI boundary checks
// before constructing the engine facade.
func New(suppressDeprecations bool) *Bus {
	return &Bus{
		subs:                 make(map[model.EventType][]Callback),
		suppressDeprecations: suppressDeprecations,
		deprecatedSeen:       make(map[string]bool),
	}
}

// Subscribe registers a typed callback, invoked only for events of type t.
func (b *Bus) Subscribe(t model.EventType, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], cb)
}

// SubscribeAll registers a callback invoked for every event on the bus,
// regardless of type, in publish order.
func (b *Bus) SubscribeAll(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, cb)
}

// Publish delivers an event to every matching subscriber synchronously,
// in registration order (typed subscribers first, then catch-all
// subscribers). A panic or error from one subscriber is caught and
// logged; it never stops delivery to the rest, and it never propagates
// back to the caller that triggered the event (the queue/orchestrator).
func (b *Bus) Publish(e model.Event) {
	b.mu.Lock()
	typed := append([]Callback(nil), b.subs[e.Type]...)
	all := append([]Callback(nil), b.all...)
	b.mu.Unlock()

	for _, cb := range typed {
		b.deliver(cb, e)
	}
	for _, cb := range all {
		b.deliver(cb, e)
	}
}

func (b *Bus) deliver(cb Callback, e model.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("eventbus: subscriber panicked", "event", e.Type, "panic", r)
		}
	}()
	cb(e)
}

// AdaptLegacy wraps a legacy per-operation callback as a canonical bus
// subscription and emits a one-time deprecation notice per legacy
// surface name the first time it fires, unless deprecation notices are
// suppressed. This is the adapter the engine facade uses when the host
// program's options still carry the old per-operation callback block
// instead of the canonical eventCallbacks bus subscription.
func (b *Bus) AdaptLegacy(surface string, t model.EventType, cb Callback) {
	b.Subscribe(t, func(e model.Event) {
		b.warnDeprecatedOnce(surface)
		cb(e)
	})
}

func (b *Bus) warnDeprecatedOnce(surface string) {
	if b.suppressDeprecations {
		return
	}
	b.deprecatedMu.Lock()
	already := b.deprecatedSeen[surface]
	b.deprecatedSeen[surface] = true
	b.deprecatedMu.Unlock()
	if !already {
		slog.Warn("eventbus: legacy callback surface is deprecated, migrate to eventCallbacks", "surface", surface)
	}
}

// ResetDeprecationNotices clears the one-time deprecation cache. Tests
// that exercise AdaptLegacy across multiple cases need this so each case
// starts from a clean slate.
func (b *Bus) ResetDeprecationNotices() {
	b.deprecatedMu.Lock()
	defer b.deprecatedMu.Unlock()
	b.deprecatedSeen = make(map[string]bool)
}
