package eventbus

import (
	"testing"
	"time"

	"github.com/use-agent/webauditor/model"
)

func TestBus_TypedSubscriberOnlyReceivesItsType(t *testing.T) {
	b := New(false)

	var started, completed int
	b.Subscribe(model.EventURLStarted, func(e model.Event) { started++ })
	b.Subscribe(model.EventURLCompleted, func(e model.Event) { completed++ })

	b.Publish(model.Event{Type: model.EventURLStarted})
	b.Publish(model.Event{Type: model.EventURLStarted})
	b.Publish(model.Event{Type: model.EventURLCompleted})

	if started != 2 {
		t.Errorf("started = %d, want 2", started)
	}
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
}

func TestBus_SubscribeAllReceivesEveryEvent(t *testing.T) {
	b := New(false)

	var all []model.EventType
	b.SubscribeAll(func(e model.Event) { all = append(all, e.Type) })

	b.Publish(model.Event{Type: model.EventURLStarted})
	b.Publish(model.Event{Type: model.EventProgress})
	b.Publish(model.Event{Type: model.EventQueueEmpty})

	want := []model.EventType{model.EventURLStarted, model.EventProgress, model.EventQueueEmpty}
	if len(all) != len(want) {
		t.Fatalf("got %d events, want %d", len(all), len(want))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, all[i], want[i])
		}
	}
}

func TestBus_TypedSubscribersDeliverBeforeCatchAll(t *testing.T) {
	b := New(false)

	var order []string
	b.SubscribeAll(func(e model.Event) { order = append(order, "catch-all") })
	b.Subscribe(model.EventURLStarted, func(e model.Event) { order = append(order, "typed") })

	b.Publish(model.Event{Type: model.EventURLStarted})

	if len(order) != 2 || order[0] != "typed" || order[1] != "catch-all" {
		t.Errorf("delivery order = %v, want [typed catch-all]", order)
	}
}

func TestBus_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	b := New(false)

	var secondCalled bool
	b.Subscribe(model.EventURLStarted, func(e model.Event) { panic("boom") })
	b.Subscribe(model.EventURLStarted, func(e model.Event) { secondCalled = true })

	b.Publish(model.Event{Type: model.EventURLStarted})

	if !secondCalled {
		t.Error("second subscriber was not invoked after the first one panicked")
	}
}

func TestBus_AdaptLegacyDeliversToWrappedCallback(t *testing.T) {
	b := New(false)

	var received model.Event
	b.AdaptLegacy("onURLStarted", model.EventURLStarted, func(e model.Event) { received = e })

	b.Publish(model.Event{Type: model.EventURLStarted, Timestamp: time.Now()})

	if received.Type != model.EventURLStarted {
		t.Errorf("legacy callback did not receive the event, got %+v", received)
	}
}

func TestBus_SuppressDeprecationsPreventsFurtherEmission(t *testing.T) {
	// Suppression affects the warning itself, not callback delivery: the
	// surface is never recorded as warned, and delivery still happens.
	b := New(true)

	var calls int
	b.AdaptLegacy("onURLStarted", model.EventURLStarted, func(e model.Event) { calls++ })

	b.Publish(model.Event{Type: model.EventURLStarted})
	b.Publish(model.Event{Type: model.EventURLStarted})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	b.deprecatedMu.Lock()
	warned := b.deprecatedSeen["onURLStarted"]
	b.deprecatedMu.Unlock()
	if warned {
		t.Error("deprecation notice was emitted despite suppression")
	}
}

func TestBus_ResetDeprecationNoticesClearsSeenSet(t *testing.T) {
	b := New(false)
	b.AdaptLegacy("onURLStarted", model.EventURLStarted, func(model.Event) {})
	b.Publish(model.Event{Type: model.EventURLStarted})

	b.deprecatedMu.Lock()
	seenBefore := b.deprecatedSeen["onURLStarted"]
	b.deprecatedMu.Unlock()
	if !seenBefore {
		t.Fatal("expected surface to be marked seen after first publish")
	}

	b.ResetDeprecationNotices()

	b.deprecatedMu.Lock()
	seenAfter := b.deprecatedSeen["onURLStarted"]
	b.deprecatedMu.Unlock()
	if seenAfter {
		t.Error("ResetDeprecationNotices did not clear the seen set")
	}
}
