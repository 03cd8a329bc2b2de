package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// capturingHub records broadcast payloads so tests can answer requests.
type capturingHub struct {
	mu       sync.Mutex
	requests []Request
}

func (h *capturingHub) Broadcast(msgType string, payload interface{}) error {
	if msgType != "dialog:request" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, payload.(Request))
	return nil
}

func (h *capturingHub) waitForRequest(t *testing.T) Request {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		if len(h.requests) > 0 {
			req := h.requests[len(h.requests)-1]
			h.mu.Unlock()
			return req
		}
		h.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no dialog request broadcast")
	return Request{}
}

func TestPromptAnswered(t *testing.T) {
	hub := &capturingHub{}
	b := NewBroker(hub, zerolog.Nop())

	go func() {
		req := hub.waitForRequest(t)
		b.Deliver(req.ID, Answer{OK: true, Value: "renamed.txt"})
	}()

	value, ok, err := b.Prompt(context.Background(), "New name", "old.txt")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if !ok || value != "renamed.txt" {
		t.Errorf("Prompt = (%q, %v), want (renamed.txt, true)", value, ok)
	}
	if len(b.Pending()) != 0 {
		t.Error("request still pending after answer")
	}
}

func TestPromptDismissed(t *testing.T) {
	hub := &capturingHub{}
	b := NewBroker(hub, zerolog.Nop())

	go func() {
		req := hub.waitForRequest(t)
		b.Deliver(req.ID, Answer{OK: false})
	}()

	_, ok, err := b.Prompt(context.Background(), "New name", "")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if ok {
		t.Error("dismissed prompt reported ok")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name string
		ans  Answer
		want bool
	}{
		{"confirmed", Answer{OK: true, Confirmed: true}, true},
		{"declined", Answer{OK: true, Confirmed: false}, false},
		{"dismissed", Answer{OK: false, Confirmed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &capturingHub{}
			b := NewBroker(hub, zerolog.Nop())

			go func() {
				req := hub.waitForRequest(t)
				b.Deliver(req.ID, tt.ans)
			}()

			got, err := b.Confirm(context.Background(), "Delete 3 files?")
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextCancellationAbandonsRequest(t *testing.T) {
	hub := &capturingHub{}
	b := NewBroker(hub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		hub.waitForRequest(t)
		cancel()
	}()

	_, _, err := b.Prompt(ctx, "New name", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(b.Pending()) != 0 {
		t.Error("abandoned request still pending")
	}
}

func TestDeliverUnknownID(t *testing.T) {
	b := NewBroker(nil, zerolog.Nop())
	if b.Deliver("missing", Answer{OK: true}) {
		t.Error("Deliver of unknown id should report false")
	}
}

func TestDeliverTwice(t *testing.T) {
	hub := &capturingHub{}
	b := NewBroker(hub, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Prompt(context.Background(), "Name", "")
	}()

	req := hub.waitForRequest(t)
	if !b.Deliver(req.ID, Answer{OK: true, Value: "x"}) {
		t.Fatal("first deliver failed")
	}
	if b.Deliver(req.ID, Answer{OK: true, Value: "y"}) {
		t.Error("second deliver should report false")
	}
	<-done
}

func TestRequestSerialization(t *testing.T) {
	req := Request{ID: "abc", Kind: KindConfirm, Message: "Sure?"}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	// The default value is omitted when empty so prompt UIs can
	// distinguish "no default" from an empty one.
	if string(data) != `{"id":"abc","kind":"confirm","message":"Sure?"}` {
		t.Errorf("unexpected encoding %s", data)
	}
}
