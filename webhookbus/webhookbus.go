// Package webhookbus adapts the event bus's lifecycle stream into signed
// outbound HTTP POST deliveries, for hosts that want audit progress
// pushed to an external endpoint instead of polled from the process.
package webhookbus

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/webauditor/eventbus"
	"github.com/use-agent/webauditor/model"
)

// Payload is the JSON body delivered to the webhook endpoint.
type Payload struct {
	Type      model.EventType `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      any             `json:"data"`
}

// Subscriber delivers every bus event to one HTTP endpoint, signing the
// body with HMAC-SHA256 when a secret is configured.
type Subscriber struct {
	URL    string
	Secret string
	Client *http.Client
}

// New builds a subscriber. Pass nil for client to use a 10s-timeout
// default client.
func New(url, secret string, client *http.Client) *Subscriber {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Subscriber{URL: url, Secret: secret, Client: client}
}

// Attach registers the subscriber on every event type the bus carries.
// Delivery itself runs asynchronously per event (deliverAsync) so the
// publisher — the queue or orchestrator — is never slowed by a webhook
// endpoint's latency.
func (s *Subscriber) Attach(bus *eventbus.Bus) {
	bus.SubscribeAll(func(e model.Event) {
		s.deliverAsync(&Payload{
			Type:      e.Type,
			Timestamp: e.Timestamp.Unix(),
			Data:      e.Payload,
		})
	})
}

// deliver sends one payload synchronously.
func (s *Subscriber) deliver(ctx context.Context, p *Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhookbus: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhookbus: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "webauditor-webhook/1.0")

	if s.Secret != "" {
		mac := hmac.New(sha256.New, []byte(s.Secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Webauditor-Signature", "sha256="+sig)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhookbus: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhookbus: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// deliverAsync retries delivery at 0s, 1s, 5s, 30s before giving up.
func (s *Subscriber) deliverAsync(p *Payload) {
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.deliver(ctx, p)
			cancel()
			if err == nil {
				slog.Debug("webhookbus: delivered", "url", s.URL, "event", p.Type, "attempt", attempt+1)
				return
			}
			slog.Warn("webhookbus: delivery failed", "url", s.URL, "event", p.Type, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhookbus: delivery exhausted all retries", "url", s.URL, "event", p.Type)
	}()
}
