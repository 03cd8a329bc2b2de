// Package notify keeps the in-app notification stack shown by the UI.
// The stack is bounded: pushing past the cap silently drops the oldest
// entry. Non-error severities close themselves after a severity-specific
// delay; errors stay until the user dismisses them.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxVisible is the stack cap. The sixth notification evicts the first.
const maxVisible = 5

// Severity classifies a notification.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// autoCloseDelay returns the display duration for a severity. Errors
// never auto-close.
func autoCloseDelay(s Severity) (time.Duration, bool) {
	switch s {
	case SeveritySuccess:
		return 3 * time.Second, true
	case SeverityInfo:
		return 4 * time.Second, true
	case SeverityWarning:
		return 6 * time.Second, true
	default:
		return 0, false
	}
}

// Notification is one entry in the stack. PanelID scopes it to a panel
// when set; empty means global.
type Notification struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	PanelID    string    `json:"panelId,omitempty"`
	AutoClose  bool      `json:"autoClose"`
	DurationMS int64     `json:"durationMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Center owns the bounded notification stack.
type Center struct {
	mu     sync.RWMutex
	items  []*Notification
	hub    Broadcaster
	logger zerolog.Logger
}

// NewCenter creates a notification center. hub may be nil in tests.
func NewCenter(hub Broadcaster, logger zerolog.Logger) *Center {
	return &Center{
		hub:    hub,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Push appends a notification, evicting the oldest entry when the
// stack is full, and returns the stored record.
func (c *Center) Push(severity Severity, message, panelID string) *Notification {
	n := &Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		PanelID:   panelID,
		CreatedAt: time.Now(),
	}

	delay, closes := autoCloseDelay(severity)
	if closes {
		n.AutoClose = true
		n.DurationMS = delay.Milliseconds()
	}

	c.mu.Lock()
	var evicted *Notification
	if len(c.items) >= maxVisible {
		evicted = c.items[0]
		c.items = c.items[1:]
	}
	c.items = append(c.items, n)
	c.mu.Unlock()

	if evicted != nil {
		c.broadcast("notification:dismissed", map[string]string{"id": evicted.ID})
	}
	c.broadcast("notification:added", n)

	c.logger.Debug().
		Str("id", n.ID).
		Str("severity", string(severity)).
		Str("message", message).
		Msg("notification pushed")

	if closes {
		go func() {
			time.Sleep(delay)
			c.Dismiss(n.ID)
		}()
	}

	return n
}

// Error pushes an error notification. It never auto-closes.
func (c *Center) Error(message, panelID string) *Notification {
	return c.Push(SeverityError, message, panelID)
}

// Warning pushes a warning notification.
func (c *Center) Warning(message, panelID string) *Notification {
	return c.Push(SeverityWarning, message, panelID)
}

// Info pushes an info notification.
func (c *Center) Info(message, panelID string) *Notification {
	return c.Push(SeverityInfo, message, panelID)
}

// Success pushes a success notification.
func (c *Center) Success(message, panelID string) *Notification {
	return c.Push(SeveritySuccess, message, panelID)
}

// Dismiss removes a notification by id. It is idempotent: a second
// dismissal (or an auto-close racing a manual one) is a no-op.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	removed := false
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()

	if removed {
		c.broadcast("notification:dismissed", map[string]string{"id": id})
	}
	return removed
}

// Clear removes every notification and returns how many were dropped.
func (c *Center) Clear() int {
	c.mu.Lock()
	n := len(c.items)
	c.items = nil
	c.mu.Unlock()

	if n > 0 {
		c.broadcast("notification:cleared", map[string]int{"count": n})
	}
	return n
}

// List returns the current stack, oldest first.
func (c *Center) List() []*Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Notification, len(c.items))
	copy(out, c.items)
	return out
}

// ListForPanel returns global notifications plus those scoped to the
// given panel, oldest first.
func (c *Center) ListForPanel(panelID string) []*Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Notification, 0, len(c.items))
	for _, n := range c.items {
		if n.PanelID == "" || n.PanelID == panelID {
			out = append(out, n)
		}
	}
	return out
}

func (c *Center) broadcast(msgType string, payload interface{}) {
	if c.hub == nil {
		return
	}
	c.hub.Broadcast(msgType, payload)
}
