// Package dialog bridges commands that need user input (a name, a
// confirmation) to the UI. A request is broadcast over the event
// stream, the calling goroutine blocks, and the answer comes back via
// the REST endpoint or a dialog:answer WebSocket message. The broker
// imposes no timeout; cancelling the context abandons the request.
package dialog

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind distinguishes dialog shapes.
type Kind string

const (
	KindPrompt  Kind = "prompt"
	KindConfirm Kind = "confirm"
)

// Request is what the UI renders.
type Request struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Default string `json:"default,omitempty"`
}

// Answer is the user's response. OK false means the user dismissed the
// dialog; callers treat that as a quiet no-op, never an error.
type Answer struct {
	OK        bool   `json:"ok"`
	Value     string `json:"value,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

type pending struct {
	req Request
	ch  chan Answer
}

// Broker owns in-flight dialog requests.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*pending
	hub     Broadcaster
	logger  zerolog.Logger
}

// NewBroker creates a dialog broker.
func NewBroker(hub Broadcaster, logger zerolog.Logger) *Broker {
	return &Broker{
		pending: make(map[string]*pending),
		hub:     hub,
		logger:  logger.With().Str("component", "dialog").Logger(),
	}
}

// Prompt asks the user for a text value. It blocks until an answer
// arrives or ctx is done. ok reports whether the user submitted a
// value; false means they dismissed the dialog.
func (b *Broker) Prompt(ctx context.Context, message, defaultValue string) (value string, ok bool, err error) {
	ans, err := b.ask(ctx, Request{
		Kind:    KindPrompt,
		Message: message,
		Default: defaultValue,
	})
	if err != nil {
		return "", false, err
	}
	return ans.Value, ans.OK, nil
}

// Confirm asks the user a yes/no question. Dismissing the dialog counts
// as "no".
func (b *Broker) Confirm(ctx context.Context, message string) (bool, error) {
	ans, err := b.ask(ctx, Request{
		Kind:    KindConfirm,
		Message: message,
	})
	if err != nil {
		return false, err
	}
	return ans.OK && ans.Confirmed, nil
}

// Deliver resolves a pending request. It reports false for unknown or
// already-answered ids.
func (b *Broker) Deliver(id string, ans Answer) bool {
	b.mu.Lock()
	p, exists := b.pending[id]
	if exists {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !exists {
		b.logger.Debug().Str("id", id).Msg("answer for unknown dialog")
		return false
	}

	p.ch <- ans
	return true
}

// Pending returns the requests still waiting for an answer, for UI
// re-sync after a reconnect.
func (b *Broker) Pending() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Request, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p.req)
	}
	return out
}

func (b *Broker) ask(ctx context.Context, req Request) (Answer, error) {
	req.ID = uuid.NewString()
	p := &pending{req: req, ch: make(chan Answer, 1)}

	b.mu.Lock()
	b.pending[req.ID] = p
	b.mu.Unlock()

	if b.hub != nil {
		b.hub.Broadcast("dialog:request", req)
	}

	b.logger.Debug().
		Str("id", req.ID).
		Str("kind", string(req.Kind)).
		Msg("dialog requested")

	select {
	case ans := <-p.ch:
		return ans, nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
		b.broadcastClosed(req.ID)
		return Answer{}, ctx.Err()
	}
}

// broadcastClosed tells the UI to drop a dialog whose requester gave
// up waiting.
func (b *Broker) broadcastClosed(id string) {
	if b.hub == nil {
		return
	}
	b.hub.Broadcast("dialog:closed", map[string]string{"id": id})
}
