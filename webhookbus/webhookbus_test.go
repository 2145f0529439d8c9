package webhookbus

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/use-agent/webauditor/eventbus"
	"github.com/use-agent/webauditor/model"
)

func TestSubscriber_DeliverSignsBodyWhenSecretSet(t *testing.T) {
	var gotBody []byte
	var gotSig string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Webauditor-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := New(srv.URL, "s3cret", nil)
	err := sub.deliver(context.Background(), &Payload{Type: model.EventURLCompleted, Timestamp: 1234})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var decoded Payload
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Type != model.EventURLCompleted || decoded.Timestamp != 1234 {
		t.Errorf("decoded payload = %+v, want matching type/timestamp", decoded)
	}
}

func TestSubscriber_DeliverOmitsSignatureWhenNoSecret(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webauditor-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := New(srv.URL, "", nil)
	if err := sub.deliver(context.Background(), &Payload{Type: model.EventProgress}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if gotSig != "" {
		t.Errorf("expected no signature header, got %q", gotSig)
	}
}

func TestSubscriber_DeliverReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sub := New(srv.URL, "", nil)
	if err := sub.deliver(context.Background(), &Payload{Type: model.EventProgress}); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestSubscriber_AttachForwardsEveryBusEvent(t *testing.T) {
	received := make(chan model.EventType, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p.Type
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bus := eventbus.New(false)
	New(srv.URL, "", nil).Attach(bus)

	bus.Publish(model.Event{Type: model.EventQueueEmpty, Timestamp: time.Now()})

	select {
	case got := <-received:
		if got != model.EventQueueEmpty {
			t.Errorf("forwarded event type = %q, want %q", got, model.EventQueueEmpty)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook endpoint did not receive the forwarded event in time")
	}
}
